package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrimerTextIncludesCoreTemplates(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, printPrimer(OutputText, &out))
	raw := out.String()

	require.Contains(t, raw, "CREATE_TICKET:")
	require.Contains(t, raw, "MOVE_TODO:")
	require.Contains(t, raw, "REMOVE_COLUMN:")
	require.Contains(t, raw, "DEFAULT COLUMNS: todo | in_progress | done")
	require.Contains(t, raw, "deskboard --output json")
}

func TestPrimerJSONIncludesContractSections(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, printPrimer(OutputJSON, &out))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &payload))

	require.Equal(t, "deskboard", payload["name"])

	commandTemplates, ok := payload["command_templates"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, commandTemplates, "assign_ticket")
	require.Contains(t, commandTemplates, "check_item")
	require.Contains(t, commandTemplates, "watch_events")

	require.Contains(t, payload, "roles")
	require.Contains(t, payload, "error_shape")
	require.Contains(t, payload, "watch_event_shape")
	require.Equal(t, []any{"open", "in_progress", "closed"}, payload["ticket_statuses"])
}

func TestReadPasswordFromPipe(t *testing.T) {
	t.Parallel()

	got, err := readPassword(bytes.NewBufferString("s3cretpass\nignored\n"), &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, "s3cretpass", got)

	_, err = readPassword(bytes.NewBufferString(""), &bytes.Buffer{})
	require.Error(t, err)
}
