package config

import "testing"

func withEnv(t *testing.T, kv map[string]string, fn func()) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
	fn()
}

func TestLoad_Defaults(t *testing.T) {
	withEnv(t, map[string]string{"JWT_SECRET": "s3cret"}, func() {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Port != "8080" {
			t.Fatalf("Port = %q, want 8080", cfg.Port)
		}
		if cfg.TimeLimitSeconds != 2 {
			t.Fatalf("TimeLimitSeconds = %d, want 2", cfg.TimeLimitSeconds)
		}
		if cfg.UsesMySQL() {
			t.Fatal("UsesMySQL() = true with no DSN set")
		}
		if cfg.UsesArchiver() {
			t.Fatal("UsesArchiver() = true with no MinIO credentials set")
		}
	})
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	withEnv(t, map[string]string{"JWT_SECRET": ""}, func() {
		if _, err := Load(); err == nil {
			t.Fatal("expected an error when JWT_SECRET is unset")
		}
	})
}

func TestLoad_MySQLAndArchiverDetection(t *testing.T) {
	withEnv(t, map[string]string{
		"JWT_SECRET":       "s3cret",
		"MYSQL_DSN":        "user:pass@tcp(127.0.0.1:3306)/codejudge",
		"MINIO_ENDPOINT":   "localhost:9000",
		"MINIO_ACCESS_KEY": "minioadmin",
		"MINIO_SECRET_KEY": "minioadmin",
	}, func() {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !cfg.UsesMySQL() {
			t.Fatal("UsesMySQL() = false with DSN set")
		}
		if !cfg.UsesArchiver() {
			t.Fatal("UsesArchiver() = false with full MinIO credentials set")
		}
	})
}

func TestLoad_InvalidInt(t *testing.T) {
	withEnv(t, map[string]string{"JWT_SECRET": "s3cret", "TIME_LIMIT_SECONDS": "not-a-number"}, func() {
		if _, err := Load(); err == nil {
			t.Fatal("expected an error for a non-numeric TIME_LIMIT_SECONDS")
		}
	})
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" a, b ,,c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitCSV = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("splitCSV[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
