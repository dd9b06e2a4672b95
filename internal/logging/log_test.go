package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())

	New(&buf, true).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.Same(t, log.Default(), FromContext(context.Background()))
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	Start(New(&buf, false)).Done("built", "pages", 3)
	assert.Contains(t, buf.String(), "built")
	assert.Contains(t, buf.String(), "elapsed=")
	assert.Contains(t, buf.String(), "pages=3")
}
