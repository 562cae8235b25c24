package inventory

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/parasheet/internal/testutil"
	"github.com/vk/parasheet/internal/tfstate"
)

func TestBuild_DiscoveryOrderAndDedup(t *testing.T) {
	resources := []tfstate.Resource{
		testutil.Resource(t, "aws_vpc", `{"tags": {"Name": "a"}, "cidr_block": "10.0.0.0/16"}`),
		testutil.Resource(t, "aws_subnet", `{"vpc_id": "vpc-1"}`),
		testutil.Resource(t, "aws_vpc", `{"cidr_block": "10.1.0.0/16", "enable_dns": true}`),
	}

	inv := Build(resources)

	want := []Entry{
		{ResourceType: "aws_vpc", AttributePath: "cidr_block", Effective: true},
		{ResourceType: "aws_vpc", AttributePath: "tags.Name", Effective: true},
		{ResourceType: "aws_subnet", AttributePath: "vpc_id", Effective: true},
		{ResourceType: "aws_vpc", AttributePath: "enable_dns", Effective: true},
	}
	if diff := cmp.Diff(want, inv.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"aws_vpc", "aws_subnet"}, inv.Types())
	assert.Equal(t, 4, inv.Len())
}

func TestBuild_NoDuplicatePairs(t *testing.T) {
	var resources []tfstate.Resource
	for i := 0; i < 5; i++ {
		resources = append(resources, testutil.Resource(t, "aws_instance", `{"ami": "x", "tags": {"a": "1", "b": ""}}`))
	}
	inv := Build(resources)

	seen := map[string]bool{}
	for _, e := range inv.Entries() {
		k := e.ResourceType + "\x00" + e.AttributePath
		require.False(t, seen[k], "duplicate pair %q", k)
		seen[k] = true
	}
	assert.Equal(t, 3, inv.Len())
}

func TestBuild_EffectiveIsAnyInstance(t *testing.T) {
	inv := Build([]tfstate.Resource{
		testutil.Resource(t, "aws_s3_bucket", `{"policy": "", "acl": null}`),
		testutil.Resource(t, "aws_s3_bucket", `{"policy": "{}", "acl": null}`),
	})

	assert.True(t, inv.Effective("aws_s3_bucket", "policy"), "second instance sets policy")
	assert.False(t, inv.Effective("aws_s3_bucket", "acl"))
	assert.False(t, inv.Effective("aws_s3_bucket", "missing"))
}

func TestBuild_EmptyMapIsNotEffective(t *testing.T) {
	inv := Build([]tfstate.Resource{
		testutil.Resource(t, "example_box", `{"tags": {}, "ports": [], "zero": 0, "off": false}`),
	})

	assert.Contains(t, inv.Entries(), Entry{ResourceType: "example_box", AttributePath: "tags"})
	assert.False(t, inv.Effective("example_box", "tags"))
	assert.False(t, inv.Effective("example_box", "ports"))
	assert.True(t, inv.Effective("example_box", "zero"))
	assert.True(t, inv.Effective("example_box", "off"))
}
