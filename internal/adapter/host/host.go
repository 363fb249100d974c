package host

import (
	"net/url"
	"os"
	"strings"

	"tgminer/internal/app/ports"
)

const (
	EnvInitData = "TGMINER_INIT_DATA"
	EnvRef      = "TGMINER_REF"
)

// Static serves fixed launch parameters.
type Static struct {
	InitData string
	Ref      string
}

func (s Static) LaunchParams() (string, string, bool) {
	return s.InitData, s.Ref, strings.TrimSpace(s.InitData) != ""
}

// Env reads launch parameters from the process environment on every call, so
// a supervisor may export them after startup.
type Env struct {
	InitDataVar string
	RefVar      string
}

func (e Env) LaunchParams() (string, string, bool) {
	initVar, refVar := e.InitDataVar, e.RefVar
	if initVar == "" {
		initVar = EnvInitData
	}
	if refVar == "" {
		refVar = EnvRef
	}
	initData := strings.TrimSpace(os.Getenv(initVar))
	return initData, strings.TrimSpace(os.Getenv(refVar)), initData != ""
}

// File reads either raw initData or a full mini-app launch URL from disk. The
// file may appear while login is polling.
type File struct {
	Path string
}

func (f File) LaunchParams() (string, string, bool) {
	if f.Path == "" {
		return "", "", false
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return "", "", false
	}
	return ParseLaunch(string(b))
}

// ParseLaunch extracts initData and the referral code from a launch URL such
// as https://app.example/?ref=abc#tgWebAppData=...&tgWebAppVersion=7.0. Any
// other non-empty input is taken as raw initData.
func ParseLaunch(raw string) (string, string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw, "", true
	}
	frag, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return "", "", false
	}
	initData := frag.Get("tgWebAppData")
	ref := u.Query().Get("ref")
	if ref == "" {
		ref = frag.Get("tgWebAppStartParam")
	}
	return initData, ref, initData != ""
}

// Chain asks each source in order and returns the first hit.
type Chain []ports.HostEnvironment

func (c Chain) LaunchParams() (string, string, bool) {
	for _, h := range c {
		if h == nil {
			continue
		}
		if initData, ref, ok := h.LaunchParams(); ok {
			return initData, ref, true
		}
	}
	return "", "", false
}
