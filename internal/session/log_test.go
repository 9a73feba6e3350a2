package session

import (
	"testing"

	"github.com/raphaelgruber/medconsult-go/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestLogAppendAndView(t *testing.T) {
	var l Log
	assert.Empty(t, l.View())

	l.Append(models.Message{ID: "a"})
	l.Append(models.Message{ID: "b"})
	l.Append(models.Message{ID: "a"})

	view := l.View()
	assert.Len(t, view, 3)
	assert.Equal(t, []string{"a", "b", "a"}, []string{view[0].ID, view[1].ID, view[2].ID})
	assert.Equal(t, 3, l.Len())

	view[0].ID = "changed"
	assert.Equal(t, "a", l.View()[0].ID, "view must be a copy")
}
