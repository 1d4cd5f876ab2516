// Package stage drives a single attempt at a module through its video and quiz stages.
package stage

import (
	"errors"
	"fmt"

	"onboarding/internal/model"

	"github.com/shopspring/decimal"
)

type State string

const (
	StateVideo     State = "video"
	StateQuiz      State = "quiz"
	StateFailed    State = "failed"
	StateCompleted State = "completed"
)

var ErrInvalidTransition = errors.New("invalid stage transition")

// Policy holds the quiz retry rules. The two-strikes default is product policy.
type Policy struct {
	// MaxAttempts is the number of consecutive failed submissions that forces a re-watch
	MaxAttempts int
	// PassingScore is the minimum correct ratio; 1 means every answer must be correct
	PassingScore decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 2, PassingScore: decimal.NewFromInt(1)}
}

// Normalized clamps MaxAttempts to at least 1 and PassingScore into (0, 1]
func (p Policy) Normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.PassingScore.LessThanOrEqual(decimal.Zero) || p.PassingScore.GreaterThan(decimal.NewFromInt(1)) {
		p.PassingScore = decimal.NewFromInt(1)
	}
	return p
}

// QuizResult is the outcome of one quiz submission
type QuizResult struct {
	Correct int             `json:"correct"`
	Total   int             `json:"total"`
	Score   decimal.Decimal `json:"score"`
	Passed  bool            `json:"passed"`
}

// Controller is the state machine of one module attempt. It is not safe for
// concurrent use; callers serialize access.
type Controller struct {
	module   model.Module
	policy   Policy
	state    State
	attempts int
}

// New starts a session. Modules without a video begin at the quiz; modules with
// neither video nor quiz are completed immediately.
func New(module model.Module, policy Policy) *Controller {
	c := &Controller{module: module, policy: policy.Normalized()}
	c.state = c.entryState()
	return c
}

func (c *Controller) entryState() State {
	switch {
	case c.module.HasVideo():
		return StateVideo
	case c.module.HasQuiz():
		return StateQuiz
	default:
		return StateCompleted
	}
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Attempts() int { return c.attempts }

func (c *Controller) Module() model.Module { return c.module }

func (c *Controller) Completed() bool { return c.state == StateCompleted }

// FinishVideo is fired when the video has played to the end
func (c *Controller) FinishVideo() error {
	if c.state != StateVideo {
		return c.invalid("video finished")
	}
	if c.module.HasQuiz() {
		c.state = StateQuiz
	} else {
		c.state = StateCompleted
	}
	return nil
}

// SubmitQuiz grades answers (question id -> option id). A pass completes the session.
// A failure below MaxAttempts moves to failed; reaching MaxAttempts resets the counter
// and sends the employee back to the entry stage.
func (c *Controller) SubmitQuiz(answers map[string]string) (QuizResult, error) {
	if c.state != StateQuiz {
		return QuizResult{}, c.invalid("quiz submitted")
	}

	res := grade(c.module.Questions, answers, c.policy.PassingScore)
	if res.Passed {
		c.state = StateCompleted
		return res, nil
	}

	c.attempts++
	if c.attempts < c.policy.MaxAttempts {
		c.state = StateFailed
		return res, nil
	}
	c.attempts = 0
	c.state = c.entryState()
	return res, nil
}

// Retry is fired from the failed screen
func (c *Controller) Retry() error {
	if c.state != StateFailed {
		return c.invalid("retry")
	}
	c.state = StateQuiz
	return nil
}

func (c *Controller) invalid(event string) error {
	return fmt.Errorf("%w: %s while in %s", ErrInvalidTransition, event, c.state)
}

func grade(questions []model.QuizQuestion, answers map[string]string, passing decimal.Decimal) QuizResult {
	res := QuizResult{Total: len(questions), Score: decimal.Zero}
	for _, q := range questions {
		if answers[q.ID] == q.CorrectOptionID && q.CorrectOptionID != "" {
			res.Correct++
		}
	}
	if res.Total > 0 {
		res.Score = decimal.NewFromInt(int64(res.Correct)).Div(decimal.NewFromInt(int64(res.Total))).Round(4)
	}
	res.Passed = res.Total > 0 && res.Score.GreaterThanOrEqual(passing)
	return res
}
