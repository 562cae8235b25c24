package testutil

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/vk/parasheet/internal/tfstate"
	"github.com/vk/parasheet/internal/tfvalue"
)

// Resource builds an extracted resource of type typ from a JSON object.
func Resource(t *testing.T, typ, values string) tfstate.Resource {
	t.Helper()
	v, err := tfvalue.FromJSON([]byte(values))
	require.NoError(t, err)
	return tfstate.Resource{Address: typ + ".this", Mode: "managed", Type: typ, Name: "this", Values: v}
}

// StateResource is one managed resource of a generated snapshot.
type StateResource struct {
	Type   string
	Name   string
	Values string // JSON object
}

// StateJSON renders a minimal `terraform show -json` document holding the
// given resources in the root module.
func StateJSON(t *testing.T, resources ...StateResource) []byte {
	t.Helper()

	entries := make([]map[string]any, 0, len(resources))
	for _, r := range resources {
		name := r.Name
		if name == "" {
			name = "this"
		}
		entries = append(entries, map[string]any{
			"address":       r.Type + "." + name,
			"mode":          "managed",
			"type":          r.Type,
			"name":          name,
			"provider_name": "registry.terraform.io/hashicorp/" + strings.SplitN(r.Type, "_", 2)[0],
			"values":        json.RawMessage(r.Values),
		})
	}
	doc := map[string]any{
		"format_version":    "1.0",
		"terraform_version": "1.9.0",
		"values": map[string]any{
			"root_module": map[string]any{"resources": entries},
		},
	}
	out, err := json.Marshal(doc)
	require.NoError(t, err)
	return out
}

// WriteFiles writes every name/content pair to fs.
func WriteFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
}
