package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/learngauge/learngauge/internal/model"
)

const (
	keyCSV = "Mã,Đáp án đúng\n" +
		"MATH101001001d,A\nMATH101001002t,B\nMATH101001003k,C\n"
	chapterCSV = "Mã đề,Chương\n" +
		"MATH101001001d,1\nMATH101001002t,1\nMATH101001003k,2\n"
	responsesCSV = "MSSV,Họ tên,MATH101001001d,MATH101001002t,MATH101001003k\n" +
		"S01,An,a,b,a\n" +
		"S02,Bình,a,c,c\n"
)

// run executes the CLI with args against dbPath and returns stdout.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--db", dbPath, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCatalogIngestExport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	steps := [][]string{
		{"catalog", "course", "add", "--code", "MATH101", "--name", "Calculus"},
		{"catalog", "class", "add", "--course-id", "1", "--code", "M1", "--name", "Morning"},
		{"catalog", "clo", "add", "--code", "CLO1", "--weight", "50"},
	}
	for _, args := range steps {
		if _, err := run(t, dbPath, args...); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	out, err := run(t, dbPath, "catalog", "course", "list")
	if err != nil {
		t.Fatalf("course list: %v", err)
	}
	if !strings.Contains(out, "MATH101") {
		t.Errorf("course list = %q, want MATH101", out)
	}

	out, err = run(t, dbPath, "ingest",
		"--class-id", "1",
		"--name", "Midterm",
		"--clo-type", "CLO1",
		"--chapters", "1,2",
		"--answer-file", writeFile(t, dir, "key.csv", keyCSV),
		"--chapter-file", writeFile(t, dir, "chapters.csv", chapterCSV),
		"--responses-file", writeFile(t, dir, "responses.csv", responsesCSV),
	)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !strings.Contains(out, "2 results stored") {
		t.Errorf("ingest output = %q", out)
	}

	outPath := filepath.Join(dir, "export.json")
	if _, err := run(t, dbPath, "export", "--exam-id", "1", "-o", outPath); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var export model.ExamExport
	if err := json.Unmarshal(data, &export); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if export.NumStudents != 2 {
		t.Errorf("NumStudents = %d, want 2", export.NumStudents)
	}
	if export.CourseCode != "MATH101" {
		t.Errorf("CourseCode = %q, want MATH101", export.CourseCode)
	}
}

func TestIngestRejectsInvalidUpload(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	for _, args := range [][]string{
		{"catalog", "course", "add", "--code", "MATH101", "--name", "Calculus"},
		{"catalog", "class", "add", "--course-id", "1", "--code", "M1"},
		{"catalog", "clo", "add", "--code", "CLO1", "--weight", "50"},
	} {
		if _, err := run(t, dbPath, args...); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	dup := responsesCSV + "S01,An again,a,b,c\n"
	_, err := run(t, dbPath, "ingest",
		"--class-id", "1",
		"--name", "Midterm",
		"--clo-type", "CLO1",
		"--chapters", "1",
		"--answer-file", writeFile(t, dir, "key.csv", keyCSV),
		"--chapter-file", writeFile(t, dir, "chapters.csv", chapterCSV),
		"--responses-file", writeFile(t, dir, "responses.csv", dup),
	)
	if err == nil {
		t.Fatal("ingest succeeded, want duplicate student error")
	}
	if !strings.Contains(err.Error(), "s01") {
		t.Errorf("error = %q, want it to name s01", err)
	}

	if _, err := run(t, dbPath, "export", "--exam-id", "1"); err == nil {
		t.Error("export found an exam after a rejected ingest")
	}
}

func TestIngestRequiresFlags(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	if _, err := run(t, dbPath, "ingest", "--name", "Midterm"); err == nil {
		t.Fatal("ingest without required flags succeeded")
	}
}
