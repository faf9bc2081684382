package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func memoriesURL(api, user string) string {
	return fmt.Sprintf("%s/api/users/%s/memories", api, user)
}

func requireUser() error {
	if userFlag == "" {
		return fmt.Errorf("--user required")
	}
	return nil
}

func printTo(out io.Writer, data []byte) error {
	_, err := fmt.Fprintln(out, string(data))
	return err
}

func init() {
	memCmd := &cobra.Command{Use: "memories", Short: "Memory operations for a user"}

	// list
	rawFlag := false
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List memory entries (active by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return runList(apiFlag, userFlag, rawFlag, os.Stdout)
		},
	}
	listCmd.Flags().BoolVar(&rawFlag, "raw", false, "Include expired entries")
	memCmd.AddCommand(listCmd)

	// keys
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List all memory keys, expired included",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			data, err := doGet(memoriesURL(apiFlag, userFlag) + "/keys")
			if err != nil {
				return err
			}
			return printTo(os.Stdout, data)
		},
	}
	memCmd.AddCommand(keysCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Show the full content of one memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			data, err := doGet(memoriesURL(apiFlag, userFlag) + "/" + args[0])
			if err != nil {
				return err
			}
			return printTo(os.Stdout, data)
		},
	}
	memCmd.AddCommand(getCmd)

	// prompt
	promptCmd := &cobra.Command{
		Use:   "prompt",
		Short: "Show the prompt-ready summary block",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			data, err := doGet(memoriesURL(apiFlag, userFlag) + "/prompt")
			if err != nil {
				return err
			}
			return printTo(os.Stdout, data)
		},
	}
	memCmd.AddCommand(promptCmd)

	// add / update / merge share flags
	var key, summary, content, typ string
	makeWriteCmd := func(use, short, mode string) *cobra.Command {
		c := &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := requireUser(); err != nil {
					return err
				}
				if key == "" {
					return fmt.Errorf("--key required")
				}
				return runWrite(apiFlag, userFlag, mode, key, summary, content, typ, os.Stdout)
			},
		}
		c.Flags().StringVarP(&key, "key", "k", "", "Memory key (required)")
		c.Flags().StringVarP(&summary, "summary", "s", "", "Short summary")
		c.Flags().StringVarP(&content, "content", "c", "", "Full content")
		c.Flags().StringVarP(&typ, "type", "t", "", "longterm or shortterm (default per key)")
		return c
	}
	memCmd.AddCommand(makeWriteCmd("add", "Add a new memory", "add"))
	memCmd.AddCommand(makeWriteCmd("update", "Replace an existing memory", "update"))
	memCmd.AddCommand(makeWriteCmd("merge", "Append content to a memory", "merge"))

	// promote
	promoteCmd := &cobra.Command{
		Use:   "promote KEY",
		Short: "Convert a shortterm memory to longterm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			data, err := doPostJSON(memoriesURL(apiFlag, userFlag)+"/"+args[0]+"/promote", nil)
			if err != nil {
				return err
			}
			return printTo(os.Stdout, data)
		},
	}
	memCmd.AddCommand(promoteCmd)

	// delete
	deleteCmd := &cobra.Command{
		Use:   "delete KEY",
		Short: "Delete one memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			data, err := doDelete(memoriesURL(apiFlag, userFlag) + "/" + args[0])
			if err != nil {
				return err
			}
			return printTo(os.Stdout, data)
		},
	}
	memCmd.AddCommand(deleteCmd)

	// clear
	yesFlag := false
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every memory for the user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if !yesFlag {
				return fmt.Errorf("refusing to clear %s's memories without --yes", userFlag)
			}
			data, err := doDelete(memoriesURL(apiFlag, userFlag))
			if err != nil {
				return err
			}
			return printTo(os.Stdout, data)
		},
	}
	clearCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Confirm destructive clear")
	memCmd.AddCommand(clearCmd)

	rootCmd.AddCommand(memCmd)
}

func runList(api, user string, raw bool, out io.Writer) error {
	url := memoriesURL(api, user)
	if raw {
		url += "?view=raw"
	}
	data, err := doGet(url)
	if err != nil {
		return err
	}
	return printTo(out, data)
}

func runWrite(api, user, mode, key, summary, content, typ string, out io.Writer) error {
	payload := map[string]interface{}{
		"key":     key,
		"summary": summary,
		"content": content,
	}
	if typ != "" {
		payload["type"] = typ
	}
	var data []byte
	var err error
	if mode == "update" {
		data, err = doPutJSON(memoriesURL(api, user)+"/"+key, payload)
	} else {
		payload["mode"] = mode
		data, err = doPostJSON(memoriesURL(api, user), payload)
	}
	if err != nil {
		return err
	}
	return printTo(out, data)
}
