package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerFlag(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{name: "unset", value: "", want: ""},
		{name: "plain", value: "7", want: "7"},
		{name: "leading zeros", value: "007", want: "7"},
		{name: "float form", value: "7.0", want: "7"},
		{name: "padded", value: " 7 ", want: "7"},
		{name: "not a code", value: "C-007", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test"}
			cmd.Flags().String("customer", "", "")
			require.NoError(t, cmd.Flags().Set("customer", tt.value))

			got, err := customerFlag(cmd)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid --customer")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
