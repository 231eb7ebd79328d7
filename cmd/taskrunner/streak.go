package main

import (
	"bufio"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/taskops/taskrunner/pkg/streak"
)

func newStreakCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Track the longest consecutive run of integers read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			counter := streak.NewCounter()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Split(bufio.ScanWords)
			for scanner.Scan() {
				word := scanner.Text()
				if word == "" {
					continue
				}
				n, err := strconv.Atoi(word)
				if err != nil {
					return errors.Wrapf(err, "parse %q", word)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %d, longest = %d\n", n, counter.Add(n))
			}
			if err := scanner.Err(); err != nil {
				return errors.Wrap(err, "read stdin")
			}
			return nil
		},
	}
	return cmd
}
