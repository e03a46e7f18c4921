package main

import (
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/simonjohansson/deskboard/internal/mockserver"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", filepath.Join("api", "openapi.yaml"), "output path; a .json suffix writes JSON instead of YAML")
	flag.Parse()

	app, err := mockserver.New(mockserver.Options{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	})
	if err != nil {
		log.Fatalf("init server: %v", err)
	}
	defer func() { _ = app.Close() }()

	var raw []byte
	if strings.HasSuffix(outPath, ".json") {
		raw, err = json.MarshalIndent(app.OpenAPI(), "", "  ")
	} else {
		raw, err = yaml.Marshal(app.OpenAPI())
	}
	if err != nil {
		log.Fatalf("marshal openapi: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	if err := os.WriteFile(outPath, raw, 0o644); err != nil {
		log.Fatalf("write openapi file: %v", err)
	}
}
