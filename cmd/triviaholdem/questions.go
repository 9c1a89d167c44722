package main

import (
	"fmt"
	"os"

	"github.com/lox/triviaholdem/internal/quiz"
	"github.com/lox/triviaholdem/internal/randutil"
)

// QuestionsCmd groups question bank commands
type QuestionsCmd struct {
	Check QuestionsCheckCmd `cmd:"" help:"Validate a question bank and print how many questions each difficulty has"`
}

// QuestionsCheckCmd parses a bank file and reports its contents
type QuestionsCheckCmd struct {
	File string `arg:"" type:"existingfile" help:"Question bank HCL file"`
}

func (c *QuestionsCheckCmd) Run() error {
	bank, err := quiz.LoadBank(c.File, randutil.New(1))
	if err != nil {
		return err
	}
	counts := bank.Counts()
	fmt.Fprintf(os.Stdout, "%s: %d questions\n", c.File, bank.Len())
	for _, d := range []quiz.Difficulty{quiz.Easy, quiz.Medium, quiz.Hard, quiz.Extreme} {
		fmt.Fprintf(os.Stdout, "  %-8s %d\n", d, counts[d])
	}
	return nil
}
