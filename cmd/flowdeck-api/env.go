package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envFileFlag    = "env-file"
	defaultEnvFile = ".env"
)

// loadEnvFile reads the dotenv file named by --env-file before flag parsing,
// so its variables feed the flag sources. Existing variables win and a
// missing file is ignored.
func loadEnvFile(args []string) {
	path := envFilePath(args)

	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load env file", "path", path, "error", err)
	}
}

func envFilePath(args []string) string {
	for i, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}

		if value, ok := strings.CutPrefix(name, envFileFlag+"="); ok {
			return value
		}

		if name == envFileFlag && i+1 < len(args) {
			return args[i+1]
		}
	}

	return defaultEnvFile
}
