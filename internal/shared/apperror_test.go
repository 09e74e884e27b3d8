package shared_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketdesk/internal/shared"
)

func TestResourceNotFoundError(t *testing.T) {
	err := error(&shared.ResourceNotFoundError{ID: 42})

	assert.EqualError(t, err, "ticket delete fail: id 42 not found")
	assert.True(t, shared.IsNotFound(err))
	assert.Equal(t, shared.CodeTicketDeleteFailIDNotFound, shared.CodeOf(err))

	var nf *shared.ResourceNotFoundError
	require.True(t, errors.As(fmt.Errorf("handler: %w", err), &nf))
	assert.Equal(t, int64(42), nf.ID)
}

func TestLoginFailError(t *testing.T) {
	assert.EqualError(t, shared.ErrLoginFail, "login fail")
	assert.Equal(t, shared.CodeLoginFail, shared.CodeOf(shared.ErrLoginFail))
	assert.ErrorIs(t, shared.Wrap(shared.ErrLoginFail, "api login"), shared.ErrLoginFail)
}

func TestCodeOf_Unknown(t *testing.T) {
	assert.Equal(t, shared.CodeUnknown, shared.CodeOf(nil))
	assert.Equal(t, shared.CodeUnknown, shared.CodeOf(errors.New("plain")))
}

func TestLogValue(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	log.Error("failed", slog.Any("error", &shared.ResourceNotFoundError{ID: 5}))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	group, ok := rec["error"].(map[string]any)
	require.True(t, ok, "error attribute should be a group: %v", rec["error"])
	assert.Equal(t, "TICKET_DELETE_FAIL_ID_NOT_FOUND", group["code"])
	assert.Equal(t, float64(5), group["id"])
}

func Example_codeOf() {
	err := shared.Wrap(&shared.ResourceNotFoundError{ID: 0}, "delete ticket")

	fmt.Println(err)
	fmt.Println(shared.CodeOf(err), shared.KindOf(err))

	// Output:
	// delete ticket: ticket delete fail: id 0 not found
	// TICKET_DELETE_FAIL_ID_NOT_FOUND NotFound
}
