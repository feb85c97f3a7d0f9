//go:build !integration

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-research/internal/model"
)

func TestParseTargetsCSV_HeaderSelectsColumn(t *testing.T) {
	in := "name,Website,city\nAcme Gym,acme-gym.de,Berlin\nBeta,  beta.de ,Hamburg\nEmpty,,Köln\n"

	targets, err := parseTargetsCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []model.Target{{Locator: "acme-gym.de"}, {Locator: "beta.de"}}, targets)
}

func TestParseTargetsCSV_NoHeader(t *testing.T) {
	in := "acme.de\nhttps://beta.de/about,extra\n"

	targets, err := parseTargetsCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "https://beta.de/about", targets[1].Locator)
}

func TestParseTargetsCSV_Malformed(t *testing.T) {
	_, err := parseTargetsCSV(strings.NewReader("url\n\"unterminated\n"))
	assert.Error(t, err)
}

func TestLoadTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.csv")
	require.NoError(t, os.WriteFile(path, []byte("url\nbeta.de\n"), 0644))

	targets, err := loadTargets([]string{"acme.de", "  "}, path)
	require.NoError(t, err)
	assert.Equal(t, []model.Target{{Locator: "acme.de"}, {Locator: "beta.de"}}, targets)
}

func TestLoadTargets_Errors(t *testing.T) {
	_, err := loadTargets(nil, "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no targets")

	_, err = loadTargets(nil, filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestLoadSender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sender.yaml")
	yaml := `
sender_company: Reach GmbH
sender_name: Kim
service_offering: Paid social for gyms
email_tone: friendly
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	sc, err := loadSender(path)
	require.NoError(t, err)
	assert.Equal(t, "Reach GmbH", sc.Company)
	assert.Equal(t, "friendly", sc.Tone)
	assert.Equal(t, "medium", sc.Length)
	assert.NotEmpty(t, sc.CallToAction)
}

func TestLoadSender_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := loadSender(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	noCompany := filepath.Join(dir, "nocompany.yaml")
	require.NoError(t, os.WriteFile(noCompany, []byte("sender_name: Kim\n"), 0644))
	_, err = loadSender(noCompany)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sender_company is required")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("sender_company: [x\n"), 0644))
	_, err = loadSender(bad)
	assert.Error(t, err)
}
