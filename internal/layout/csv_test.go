package layout

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/parasheet/internal/ctxlog"
	"golang.org/x/text/encoding/japanese"
)

func TestWrite(t *testing.T) {
	l := Layout{
		{ResourceType: "aws_vpc", AttributePath: "cidr_block", SheetName: "VPC", Header: "CIDR, block", Required: " 1 ", Order: "1"},
		{ResourceType: "aws_vpc", AttributePath: "tags.Name", SheetName: "VPC", Header: "Name", Required: "", Order: "2"},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, l))

	want := "\uFEFF" +
		"resource_type,attribute_path,sheet_name,header,required,order\r\n" +
		"aws_vpc,cidr_block,VPC,\"CIDR, block\",1,1\r\n" +
		"aws_vpc,tags.Name,VPC,Name,,2\r\n"
	assert.Equal(t, want, buf.String())
}

func TestParse(t *testing.T) {
	src := "\uFEFForder,resource_type,attribute_path,extra,sheet_name,header,required\n" +
		"3,aws_vpc,cidr_block,x,VPC,CIDR,1\n" +
		"\n" +
		"1,aws_subnet,vpc_id\n"

	l, err := Parse(strings.NewReader(src))
	require.NoError(t, err)

	want := Layout{
		{ResourceType: "aws_vpc", AttributePath: "cidr_block", SheetName: "VPC", Header: "CIDR", Required: "1", Order: "3"},
		{ResourceType: "aws_subnet", AttributePath: "vpc_id", Order: "1"},
	}
	if diff := cmp.Diff(want, l, cmp.AllowUnexported(Row{})); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Empty(t *testing.T) {
	l, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, l)
}

func TestWriteParseRoundTrip(t *testing.T) {
	l := Layout{
		{ResourceType: "aws_iam_role", AttributePath: "assume_role_policy", SheetName: "IAM ロール", Header: "信頼ポリシー \"JSON\"", Required: "1", Order: "1"},
		{ResourceType: "aws_iam_role", AttributePath: "name", SheetName: "IAM ロール", Header: "line\nbreak", Required: "", Order: ""},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, l))

	got, err := Parse(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(l, got, cmp.AllowUnexported(Row{})); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadFile_ShiftJIS(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := "resource_type,attribute_path,sheet_name,header,required,order\r\naws_vpc,cidr_block,ネットワーク,CIDRブロック,1,1\r\n"
	encoded, err := japanese.ShiftJIS.NewEncoder().String(src)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "layout.csv", []byte(encoded), 0o644))

	l, enc, err := ReadFile(fs, "layout.csv")
	require.NoError(t, err)
	assert.Equal(t, "shift_jis", enc)
	require.Len(t, l, 1)
	assert.Equal(t, "ネットワーク", l[0].SheetName)
	assert.Equal(t, "CIDRブロック", l[0].Header)
}

func TestReadPrevious(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	fs := afero.NewMemMapFs()

	t.Run("missing file yields empty map", func(t *testing.T) {
		prev, err := ReadPrevious(ctx, fs, "nope.csv")
		require.NoError(t, err)
		assert.Empty(t, prev)
	})

	t.Run("blank keys skipped and first duplicate wins", func(t *testing.T) {
		src := "resource_type,attribute_path,sheet_name,header,required,order\n" +
			" aws_vpc , id ,First,ID,1,1\n" +
			"aws_vpc,id,Second,ID,1,1\n" +
			",orphan,X,X,1,1\n" +
			"aws_vpc,,X,X,1,1\n"
		require.NoError(t, afero.WriteFile(fs, "layout.csv", []byte(src), 0o644))

		prev, err := ReadPrevious(ctx, fs, "layout.csv")
		require.NoError(t, err)
		require.Len(t, prev, 1)
		assert.Equal(t, "First", prev[Key{ResourceType: "aws_vpc", AttributePath: "id"}].SheetName)
	})
}

func TestWriteFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := Layout{{ResourceType: "a", AttributePath: "b", SheetName: "a", Header: "b", Required: "1", Order: "1"}}
	require.NoError(t, WriteFile(fs, "out.csv", l))

	got, enc, err := ReadFile(fs, "out.csv")
	require.NoError(t, err)
	assert.Equal(t, "utf-8-sig", enc)
	assert.Equal(t, l, got)
}
