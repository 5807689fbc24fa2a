package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"qualifier-bot/internal/config"
	"qualifier-bot/internal/interviewer"
	"qualifier-bot/internal/logger"
	"qualifier-bot/internal/settings"
	"qualifier-bot/internal/slip"
	"qualifier-bot/internal/storage"
)

const (
	PromptBegin        = "Press \"start exam\""
	PromptConfirmReady = "Press \"I am ready\""
	PromptAcceptTerms  = "Press \"accept terms\""
	PromptText         = "Send a text message"
	PromptReset        = "Reset my data"
	PromptQuit         = "Quit"

	simulatedUserID int64 = 1
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Walk through the interview script in the terminal",
	Long:  "simulate runs the qualification flow against an in-memory store, printing the replies a candidate would get.",
	Run: func(_ *cobra.Command, _ []string) {
		simulate()
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

func simulate() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	script, err := config.LoadScript(viper.GetString("script-file"))
	if err != nil {
		logger.Fatal("loading the interview script", zap.Error(err))
	}

	store := storage.NewMemoryStore()
	cache := settings.NewCache(store, nil, logger)
	if err := cache.Load(ctx); err != nil {
		logger.Warn("loading settings", zap.Error(err))
	}

	machine := interviewer.New(script, cache)
	printReply(machine.Welcome("Candidate"))

	actions := promptui.Select{
		Label: "Next event",
		Items: []string{PromptBegin, PromptConfirmReady, PromptText, PromptAcceptTerms, PromptReset, PromptQuit},
		Size:  6,
	}

	for {
		_, choice, err := actions.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return
			}
			logger.Fatal("reading a choice", zap.Error(err))
		}

		var ev interviewer.Event
		switch choice {
		case PromptBegin:
			ev.Kind = interviewer.EventBegin
		case PromptConfirmReady:
			ev.Kind = interviewer.EventConfirmReady
		case PromptAcceptTerms:
			ev.Kind = interviewer.EventAcceptTerms
		case PromptReset:
			ev.Kind = interviewer.EventReset
		case PromptText:
			text, err := (&promptui.Prompt{Label: "Message"}).Run()
			if err != nil {
				continue
			}
			ev = interviewer.Event{Kind: interviewer.EventText, Text: text}
		case PromptQuit:
			return
		}

		rec, err := store.GetCandidate(ctx, simulatedUserID)
		if err != nil {
			rec = storage.DefaultRecord()
		}

		res := machine.Transition(rec, ev)
		switch {
		case res.Delete:
			_ = store.DeleteCandidate(ctx, simulatedUserID)
		case res.Save:
			_ = store.SaveCandidate(ctx, simulatedUserID, res.Record)
		}

		for _, reply := range res.Replies {
			printReply(reply)
		}
		if res.Has(interviewer.EffectSlip) {
			fmt.Println(slip.Render(slip.Slip{
				CandidateID: simulatedUserID,
				DisplayName: "Candidate",
				InterviewID: res.Record.InterviewID,
				AdminName:   cache.Get(settings.KeyAdminDisplayName),
				Answers:     res.Record.Answers,
				IssuedAt:    time.Now(),
			}, slip.TemplatesFrom(script.Messages)))
		}
		if len(res.Replies) == 0 && !res.Has(interviewer.EffectSlip) {
			printReply(machine.Hint(res.Record))
		}

		logger.Debug("state", zap.String("state", string(res.Record.State)), zap.Int("question_index", res.Record.QuestionIndex))
	}
}

func printReply(reply interviewer.Reply) {
	fmt.Println()
	fmt.Println(reply.Text)
	for _, row := range reply.Actions {
		labels := make([]string, 0, len(row))
		for _, a := range row {
			labels = append(labels, "["+a.Label+"]")
		}
		fmt.Println(strings.Join(labels, " "))
	}
	fmt.Println()
}
