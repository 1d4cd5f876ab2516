package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	assert.Equal(t, Params{Page: 1, Limit: 20, Offset: 0}, New(0, 0))
	assert.Equal(t, Params{Page: 3, Limit: 10, Offset: 20}, New(3, 10))
	assert.Equal(t, Params{Page: 1, Limit: MaxLimit, Offset: 0}, New(1, 1000))
}

func TestParse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=2&limit=abc", nil)

	assert.Equal(t, Params{Page: 2, Limit: DefaultLimit, Offset: DefaultLimit}, Parse(c))
}

func TestWrap(t *testing.T) {
	p := New(2, 10)
	page := p.Wrap([]string{"a"}, 21)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 2, page.Page)
	assert.EqualValues(t, 21, page.Total)

	assert.Zero(t, p.Wrap(nil, 0).Pages)
}
