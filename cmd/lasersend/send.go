package main

import (
	"errors"
	"fmt"

	"github.com/mastercactapus/lasersend/stream"
	"github.com/spf13/cobra"
)

var errStopped = errors.New("dispatch did not complete")

var sendCmd = &cobra.Command{
	Use:   "send <file>",
	Short: "Send a G-code file to the laser",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		file := args[0]
		p, err := a.load(file)
		if err != nil {
			return err
		}

		var w stream.Window
		w.Start, _ = cmd.Flags().GetInt("start")
		w.End, _ = cmd.Flags().GetInt("end")
		if resume, _ := cmd.Flags().GetBool("resume"); resume {
			if start, ok := a.resumeIndex(file); ok {
				fmt.Fprintf(a.out, "Resuming at line %d\n", start+1)
				w.Start = start
			}
		}
		if err := w.Check(len(p)); err != nil {
			return err
		}

		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			ok, err := a.confirm("Ok to send to laser?")
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}

		res := a.send(cmd.Context(), file, p, w)
		a.printResult(res)
		if res.Err != nil {
			return errStopped
		}
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Summarize the tool path of a G-code file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.load(args[0])
		if err != nil {
			return err
		}
		return a.printPreview(p)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd, previewCmd)
	sendCmd.Flags().Int("start", 0, "Index of the first line to send")
	sendCmd.Flags().Int("end", 0, "Index after the last line to send (0 sends to the end)")
	sendCmd.Flags().Bool("resume", false, "Start where the last unfinished job for this file stopped")
	sendCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}
