package cla_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/colpal/dataeng-container-tools/cla"
	"github.com/colpal/dataeng-container-tools/logger"
	"github.com/colpal/dataeng-container-tools/secrets"
	"github.com/google/go-cmp/cmp"
)

func TestParseBroadcastsSingleBucket(t *testing.T) {
	t.Parallel()

	args, err := cla.Parse([]string{
		"--input_bucket_names", "bkt",
		"--input_paths", "dir1",
		"--input_paths", "dir2",
		"--input_filenames", "f1.csv",
		"--input_filenames", "f2.csv",
	}, cla.Options{InputFiles: cla.Required})
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}

	want := []string{"gs://bkt/dir1/f1.csv", "gs://bkt/dir2/f2.csv"}
	if diff := cmp.Diff(args.InputURIs(), want); diff != "" {
		t.Errorf("InputURIs diff (-got +want):\n%s", diff)
	}
}

func TestParsePairsBucketsPositionally(t *testing.T) {
	t.Parallel()

	args, err := cla.Parse([]string{
		"--output_bucket_names", "bkt1",
		"--output_bucket_names", "bkt2",
		"--output_paths", "a",
		"--output_paths", "b",
		"--output_filenames", "x.json",
		"--output_filenames", "y.json",
	}, cla.Options{OutputFiles: cla.Required})
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}

	want := []string{"gs://bkt1/a/x.json", "gs://bkt2/b/y.json"}
	if diff := cmp.Diff(args.OutputURIs(), want); diff != "" {
		t.Errorf("OutputURIs diff (-got +want):\n%s", diff)
	}
}

func TestParseNormalisesURIPaths(t *testing.T) {
	t.Parallel()

	args, err := cla.Parse([]string{
		"--input_bucket_names", "bkt",
		"--input_paths", ".",
		"--input_filenames", "f.csv",
	}, cla.Options{InputFiles: cla.Required})
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}

	want := []string{"gs://bkt/f.csv"}
	if diff := cmp.Diff(args.InputURIs(), want); diff != "" {
		t.Errorf("InputURIs diff (-got +want):\n%s", diff)
	}
}

func TestParseRejectsMismatchedFileGroup(t *testing.T) {
	t.Parallel()

	_, err := cla.Parse([]string{
		"--input_bucket_names", "bkt",
		"--input_paths", "only-one",
		"--input_filenames", "f1.csv",
		"--input_filenames", "f2.csv",
	}, cla.Options{InputFiles: cla.Required})
	if err == nil {
		t.Error("Parse accepted mismatched paths/filenames, want error")
	}
}

func TestParseRejectsMissingRequiredGroup(t *testing.T) {
	t.Parallel()

	_, err := cla.Parse(nil, cla.Options{InputFiles: cla.Required})
	if err == nil {
		t.Error("Parse accepted missing required arguments, want error")
	}
}

func TestSecretLocationsRegistersMappedFiles(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "api.json")
	if err := os.WriteFile(path, []byte(`{"token": "tok-12345"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	reg := secrets.NewRegistry(logger.Discard)
	args, err := cla.Parse([]string{
		"--secret_locations", fmt.Sprintf(`{"API": %q}`, path),
	}, cla.Options{SecretLocations: cla.Optional, Registry: reg})
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}

	if got := args.SecretLocations().Lookup("API"); got != path {
		t.Errorf("Lookup(API) = %q, want %q", got, path)
	}

	var sink bytes.Buffer
	w := reg.NewWriter(&sink)
	fmt.Fprint(w, "auth tok-12345 ok")
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got, want := sink.String(), "auth ********* ok"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestSecretLocationsMissingFileIsFatal(t *testing.T) {
	t.Parallel()

	reg := secrets.NewRegistry(logger.Discard)
	_, err := cla.Parse([]string{
		"--secret_locations", `{"API": "/definitely/not/here.json"}`,
	}, cla.Options{SecretLocations: cla.Optional, Registry: reg})
	if err == nil {
		t.Error("Parse accepted a missing mapped secret file, want error")
	}
}

func TestDefaultFileTypeValidation(t *testing.T) {
	t.Parallel()

	args, err := cla.Parse(nil, cla.Options{DefaultFileType: cla.Optional})
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if got, want := args.DefaultFileType(), "json"; got != want {
		t.Errorf("DefaultFileType() = %q, want %q", got, want)
	}

	_, err = cla.Parse([]string{"--default_file_type", "parquet"}, cla.Options{DefaultFileType: cla.Optional})
	if err == nil {
		t.Error("Parse accepted unsupported file type, want error")
	}
}

func TestIdentifyingTagsExportedAsEnv(t *testing.T) {
	t.Setenv("DAG_ID", "")
	t.Setenv("RUN_ID", "")

	args, err := cla.Parse([]string{
		"--dag_id", "dag-1",
		"--run_id", "run-7",
		"--namespace", "etl",
		"--pod_name", "pod-x",
	}, cla.Options{IdentifyingTags: cla.Required})
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}

	if got, want := args.Tag("dag_id"), "dag-1"; got != want {
		t.Errorf("Tag(dag_id) = %q, want %q", got, want)
	}
	if got, want := os.Getenv("DAG_ID"), "dag-1"; got != want {
		t.Errorf("DAG_ID = %q, want %q", got, want)
	}
	if got, want := os.Getenv("RUN_ID"), "run-7"; got != want {
		t.Errorf("RUN_ID = %q, want %q", got, want)
	}
}

func TestCustomArgs(t *testing.T) {
	t.Parallel()

	opts := cla.Options{
		CustomArgs: []cla.CustomArg{
			{Name: "mode", Usage: "processing mode", Default: "fast"},
			{Name: "region", Usage: "regions to cover", Multiple: true},
		},
	}

	args, err := cla.Parse([]string{
		"--region", "us", "--region", "eu",
	}, opts)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}

	if got, want := args.Custom("mode"), "fast"; got != want {
		t.Errorf("Custom(mode) = %q, want %q", got, want)
	}
	if diff := cmp.Diff(args.CustomSlice("region"), []string{"us", "eu"}); diff != "" {
		t.Errorf("CustomSlice(region) diff (-got +want):\n%s", diff)
	}
}
