package services

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/tripkit/internal/ai"
	"github.com/julianstephens/tripkit/internal/cli"
	"github.com/julianstephens/tripkit/internal/logger"
	"github.com/julianstephens/tripkit/internal/voice"
)

type VoiceParseCmd struct {
	Text  []string `arg:"" help:"The spoken trip request."`
	Local bool     `help:"Use the built-in parser even when a language model is configured."`
}

func (c *VoiceParseCmd) Run(ctx *cli.Context) error {
	printFields(parse(ctx, strings.Join(c.Text, " "), c.Local))
	return nil
}

func parse(ctx *cli.Context, text string, local bool) ai.VoiceFields {
	if local {
		return ai.ParseVoiceInputLocal(text)
	}
	fields, err := ctx.AI.ParseVoiceInput(ctx.Ctx, text)
	if err != nil {
		if !errors.Is(err, ai.ErrNoAPIKey) {
			logger.Warn("Voice parsing failed, using local heuristic", "error", err)
		}
		return ai.ParseVoiceInputLocal(text)
	}
	return fields
}

func printFields(f ai.VoiceFields) {
	row := func(name, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Printf("  %-12s %s\n", name, value)
	}
	fmt.Println("Recognised:")
	row("Destination", f.Destination)
	budget := ""
	if f.Budget > 0 {
		budget = cli.FormatMoney(f.Budget)
	}
	row("Budget", budget)
	travelers := ""
	if f.Travelers > 0 {
		travelers = fmt.Sprint(f.Travelers)
	}
	row("Travelers", travelers)
	row("Preferences", strings.Join(f.Preferences, ", "))
	row("Start", f.StartDate)
	row("End", f.EndDate)
	row("Remarks", f.Remarks)
}

type VoiceTranscribeCmd struct {
	File  string `arg:"" type:"existingfile" help:"Raw 16 kHz mono PCM16 audio file."`
	Parse bool   `help:"Also extract trip fields from the transcript."`
}

func (c *VoiceTranscribeCmd) Run(ctx *cli.Context) error {
	client := voice.NewClient(voice.Config{
		AppID:     ctx.API.XunfeiAppID,
		APIKey:    ctx.API.XunfeiAPIKey,
		APISecret: ctx.API.XunfeiAPISecret,
	})
	if !client.Configured() {
		return voice.ErrNotConfigured
	}

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	text, err := client.Transcribe(ctx.Ctx, f, func(ev voice.Event) {
		if !ev.Final {
			fmt.Printf("\r… %s", ev.Text)
		}
	})
	fmt.Print("\r")
	if err != nil {
		return err
	}
	fmt.Println(text)

	if c.Parse && strings.TrimSpace(text) != "" {
		printFields(parse(ctx, text, false))
	}
	return nil
}
