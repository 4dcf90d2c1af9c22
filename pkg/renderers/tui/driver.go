package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// QuestionKind selects the control a driver shows for one field.
type QuestionKind int

const (
	AskText QuestionKind = iota
	AskMultiline
	AskConfirm
	AskChoice
	AskChoices
)

// Question is one field prompt. Default seeds the text kinds, Yes seeds
// AskConfirm and Selected holds indices into Options for the choice kinds.
type Question struct {
	Kind     QuestionKind
	Message  string
	Help     string
	Default  string
	Yes      bool
	Options  []string
	Selected []int
	Validate func(string) error
}

// Answer carries the reply in the slot matching the question kind.
type Answer struct {
	Text   string
	Yes    bool
	Picked []int
}

// PromptDriver abstracts the terminal so sessions can be tested without one.
type PromptDriver interface {
	Ask(ctx context.Context, q Question) (Answer, error)
	Info(ctx context.Context, msg string) error
}

type surveyDriver struct {
	out io.Writer
}

// NewSurveyDriver returns the interactive driver backed by survey.
func NewSurveyDriver() PromptDriver {
	return &surveyDriver{out: os.Stdout}
}

func (d *surveyDriver) Ask(ctx context.Context, q Question) (Answer, error) {
	if err := ctx.Err(); err != nil {
		return Answer{}, err
	}

	switch q.Kind {
	case AskConfirm:
		var yes bool
		err := survey.AskOne(&survey.Confirm{Message: q.Message, Help: q.Help, Default: q.Yes}, &yes)
		return Answer{Yes: yes}, translateSurveyErr(err)

	case AskChoice:
		prompt := &survey.Select{Message: q.Message, Help: q.Help, Options: q.Options}
		if len(q.Selected) > 0 && q.Selected[0] >= 0 && q.Selected[0] < len(q.Options) {
			prompt.Default = q.Options[q.Selected[0]]
		}
		var picked string
		if err := survey.AskOne(prompt, &picked); err != nil {
			return Answer{}, translateSurveyErr(err)
		}
		return Answer{Picked: pickedIndices(q.Options, []string{picked})}, nil

	case AskChoices:
		prompt := &survey.MultiSelect{Message: q.Message, Help: q.Help, Options: q.Options}
		for _, idx := range q.Selected {
			if idx >= 0 && idx < len(q.Options) {
				prompt.Default = append(asStrings(prompt.Default), q.Options[idx])
			}
		}
		var picked []string
		if err := survey.AskOne(prompt, &picked); err != nil {
			return Answer{}, translateSurveyErr(err)
		}
		return Answer{Picked: pickedIndices(q.Options, picked)}, nil

	case AskMultiline:
		var text string
		err := survey.AskOne(&survey.Multiline{Message: q.Message, Help: q.Help, Default: q.Default}, &text)
		return Answer{Text: text}, translateSurveyErr(err)
	}

	var opts []survey.AskOpt
	if validate := q.Validate; validate != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			s, _ := ans.(string)
			return validate(s)
		}))
	}
	var text string
	err := survey.AskOne(&survey.Input{Message: q.Message, Help: q.Help, Default: q.Default}, &text, opts...)
	return Answer{Text: text}, translateSurveyErr(err)
}

func (d *surveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

func asStrings(v interface{}) []string {
	list, _ := v.([]string)
	return list
}

// pickedIndices maps survey's label answers back to option positions.
// Labels are unique per question.
func pickedIndices(options, picked []string) []int {
	want := make(map[string]bool, len(picked))
	for _, label := range picked {
		want[label] = true
	}
	var out []int
	for i, option := range options {
		if want[option] {
			out = append(out, i)
		}
	}
	return out
}
