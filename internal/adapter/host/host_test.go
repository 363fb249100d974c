package host

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseLaunch(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		initData string
		ref      string
		ok       bool
	}{
		{"empty", "  ", "", "", false},
		{"raw init data", "query_id=AAE&user=%7B%22id%22%3A1%7D&hash=abc", "query_id=AAE&user=%7B%22id%22%3A1%7D&hash=abc", "", true},
		{"launch url with ref", "https://mini.app/?ref=friend42#tgWebAppData=query_id%3DAAE%26hash%3Dabc&tgWebAppVersion=7.0", "query_id=AAE&hash=abc", "friend42", true},
		{"start param fallback", "https://mini.app/#tgWebAppData=auth%3D1&tgWebAppStartParam=promo", "auth=1", "promo", true},
		{"url without data", "https://mini.app/#tgWebAppVersion=7.0", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			initData, ref, ok := ParseLaunch(tc.raw)
			if initData != tc.initData || ref != tc.ref || ok != tc.ok {
				t.Fatalf("got=(%q,%q,%v) want=(%q,%q,%v)", initData, ref, ok, tc.initData, tc.ref, tc.ok)
			}
		})
	}
}

func TestEnv_ReadsOnEveryCall(t *testing.T) {
	t.Setenv(EnvInitData, "")
	t.Setenv(EnvRef, "r1")
	if _, _, ok := (Env{}).LaunchParams(); ok {
		t.Fatalf("expected no launch data yet")
	}
	t.Setenv(EnvInitData, "data")
	initData, ref, ok := Env{}.LaunchParams()
	if !ok || initData != "data" || ref != "r1" {
		t.Fatalf("got=(%q,%q,%v)", initData, ref, ok)
	}
}

func TestFile_AndChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launch.txt")
	chain := Chain{nil, File{Path: path}, Static{InitData: "fallback"}}

	if initData, _, ok := chain.LaunchParams(); !ok || initData != "fallback" {
		t.Fatalf("expected static fallback, got %q ok=%v", initData, ok)
	}
	if err := os.WriteFile(path, []byte("from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if initData, _, ok := chain.LaunchParams(); !ok || initData != "from-file" {
		t.Fatalf("expected file source first, got %q ok=%v", initData, ok)
	}
}
