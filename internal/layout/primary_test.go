package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrimaryPolicy_PickWithoutSubstrings(t *testing.T) {
	policy := PrimaryPolicy{ExcludedSuffixes: []string{"_attachment"}}

	got := policy.Pick([]string{"aws_iam_policy_attachment_x", "aws_iam_user"},
		map[string]int{"aws_iam_policy_attachment_x": 5, "aws_iam_user": 1})

	assert.Equal(t, "aws_iam_policy_attachment_x", got)
}

func TestPrimaryPolicy_Pick(t *testing.T) {
	policy := defaultPolicy()

	testCases := []struct {
		name   string
		types  []string
		counts map[string]int
		want   string
	}{
		{
			name:   "preferred type wins over frequency",
			types:  []string{"aws_subnet", "aws_vpc", "aws_route_table"},
			counts: map[string]int{"aws_subnet": 6, "aws_vpc": 1, "aws_route_table": 2},
			want:   "aws_vpc",
		},
		{
			name:   "most frequent non-excluded type",
			types:  []string{"aws_instance", "aws_eip", "aws_volume_attachment"},
			counts: map[string]int{"aws_instance": 2, "aws_eip": 3, "aws_volume_attachment": 9},
			want:   "aws_eip",
		},
		{
			name:   "ties broken by name",
			types:  []string{"b_type", "a_type"},
			counts: map[string]int{"a_type": 1, "b_type": 1},
			want:   "a_type",
		},
		{
			name:   "only excluded types left",
			types:  []string{"aws_iam_role_policy_attachment", "aws_security_group_rule"},
			counts: map[string]int{"aws_iam_role_policy_attachment": 1, "aws_security_group_rule": 4},
			want:   "aws_security_group_rule",
		},
		{
			name:   "policy attachment excluded anywhere in the name",
			types:  []string{"aws_iam_policy_attachment_x", "aws_iam_user"},
			counts: map[string]int{"aws_iam_policy_attachment_x": 5, "aws_iam_user": 1},
			want:   "aws_iam_user",
		},
		{
			name:  "empty",
			types: nil,
			want:  "",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, policy.Pick(tc.types, tc.counts))
		})
	}
}
