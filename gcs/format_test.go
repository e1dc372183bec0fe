package gcs

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{uri: "gs://bkt/dir/file.csv", bucket: "bkt", object: "dir/file.csv"},
		{uri: "gs://bkt/file", bucket: "bkt", object: "file"},
		{uri: "s3://bkt/file", wantErr: true},
		{uri: "gs://bkt", wantErr: true},
		{uri: "gs:///file", wantErr: true},
	}

	for _, test := range tests {
		bucket, object, err := ParseURI(test.uri)
		if test.wantErr {
			if err == nil {
				t.Errorf("ParseURI(%q) error = nil, want error", test.uri)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseURI(%q) error = %v", test.uri, err)
			continue
		}
		if bucket != test.bucket || object != test.object {
			t.Errorf("ParseURI(%q) = (%q, %q), want (%q, %q)", test.uri, bucket, object, test.bucket, test.object)
		}
	}
}

func TestFormatFromURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		uri      string
		fallback Format
		want     Format
	}{
		{uri: "gs://b/f.csv", fallback: FormatJSON, want: FormatCSV},
		{uri: "gs://b/f.json", fallback: FormatCSV, want: FormatJSON},
		{uri: "gs://b/f.yaml", fallback: FormatJSON, want: FormatYAML},
		{uri: "gs://b/f.yml", fallback: FormatJSON, want: FormatYAML},
		{uri: "gs://b/f.txt", fallback: FormatJSON, want: FormatRaw},
		{uri: "gs://b/f.unknown", fallback: FormatCSV, want: FormatCSV},
		{uri: "gs://b/noext", fallback: FormatYAML, want: FormatYAML},
	}

	for _, test := range tests {
		if got := FormatFromURI(test.uri, test.fallback); got != test.want {
			t.Errorf("FormatFromURI(%q, %v) = %v, want %v", test.uri, test.fallback, got, test.want)
		}
	}
}

func TestFormatFromName(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]Format{
		"csv":  FormatCSV,
		"json": FormatJSON,
		"yaml": FormatYAML,
		"raw":  FormatRaw,
	} {
		got, err := FormatFromName(name)
		if err != nil {
			t.Errorf("FormatFromName(%q) error = %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("FormatFromName(%q) = %v, want %v", name, got, want)
		}
	}

	if _, err := FormatFromName("parquet"); err == nil {
		t.Error("FormatFromName(parquet) error = nil, want error")
	}
}

func TestEncodeDecodeCSV(t *testing.T) {
	t.Parallel()

	records := [][]string{{"id", "name"}, {"1", "alpha"}}
	data, contentType, err := encode(records, FormatCSV)
	if err != nil {
		t.Fatalf("encode error = %v", err)
	}
	if contentType != "text/csv" {
		t.Errorf("contentType = %q, want text/csv", contentType)
	}

	decoded, err := decode(data, FormatCSV)
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if diff := cmp.Diff(decoded, records); diff != "" {
		t.Errorf("roundtrip diff (-got +want):\n%s", diff)
	}
}

func TestEncodeRejectsMismatchedContent(t *testing.T) {
	t.Parallel()

	if _, _, err := encode(42, FormatRaw); err == nil {
		t.Error("encode(int, raw) error = nil, want error")
	}
	if _, _, err := encode("not records", FormatCSV); err == nil {
		t.Error("encode(string, csv) error = nil, want error")
	}
}
