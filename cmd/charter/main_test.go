package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReadScripts(t *testing.T) {
	scripts, err := ReadScripts("testdata")
	require.NoError(t, err)
	assert.Len(t, scripts, 2)
	assert.Contains(t, scripts, "broken")

	c, err := ReadScript("testdata/tour.yaml")
	require.NoError(t, err)
	assert.Len(t, c.Triggers, 3)
	assert.Equal(t, "tour", ScriptName("testdata/tour.yaml"))

	_, err = ReadScript("testdata/tour.txt")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	logger = zap.NewNop()
	var out bytes.Buffer
	validateCmd.SetOut(&out)
	err := validateCmd.RunE(validateCmd, []string{"testdata/tour.yaml", "testdata/broken.json"})
	assert.Error(t, err)
	assert.Contains(t, out.String(), "testdata/tour.yaml: ok")
	assert.Contains(t, out.String(), "unknown event type")
}

func TestPlay(t *testing.T) {
	events := strings.Join([]string{
		`{"event":{"type":"text_received","message":{"from":"Traveler","to":"Guide","medium":"text","content":"Ready!"}},"role":"Traveler"}`,
		`{"at":"2017-02-16T20:04:00Z"}`,
		`{"at":"2017-02-16T20:06:00Z"}`,
	}, "\n")

	var out bytes.Buffer
	err := play(context.Background(), "testdata/tour.yaml", "", "2017-02-16T20:00:00Z", strings.NewReader(events), &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2, out.String())

	var last struct {
		Ops []map[string]interface{} `json:"ops"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &last))
	var texts []string
	for _, op := range last.Ops {
		if op["operation"] == "createMessage" {
			texts = append(texts, op["fields"].(map[string]interface{})["content"].(string))
		}
	}
	assert.Equal(t, []string{"How's it going?"}, texts)
}

func TestGraph(t *testing.T) {
	var out bytes.Buffer
	graphCmd.SetOut(&out)
	graphFormat = "dot"
	defer func() { graphFormat = "mermaid" }()
	require.NoError(t, graphCmd.RunE(graphCmd, []string{"testdata/tour.yaml"}))
	assert.Contains(t, out.String(), `"tour_started" -> "check_in" [label="cue_signaled:CHECK-IN"]`)

	graphFormat = "png"
	assert.Error(t, graphCmd.RunE(graphCmd, []string{"testdata/tour.yaml"}))
}

func TestAnalyze(t *testing.T) {
	var out bytes.Buffer
	analyzeCmd.SetOut(&out)
	require.NoError(t, analyzeCmd.RunE(analyzeCmd, []string{"testdata/tour.yaml"}))

	var report struct {
		Triggers    int      `json:"triggers"`
		Entries     []string `json:"entries"`
		UnusedPages []string `json:"unusedPages"`
		Errors      []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 3, report.Triggers)
	assert.Equal(t, []string{"greeting"}, report.Entries)
	assert.Equal(t, []string{"TOUR-START"}, report.UnusedPages)
	assert.Empty(t, report.Errors)
}
