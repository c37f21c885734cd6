package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dmetrikx/aleyya/internal/console"
	"github.com/Dmetrikx/aleyya/internal/gateway"
	"github.com/Dmetrikx/aleyya/internal/imaging"
	"github.com/Dmetrikx/aleyya/internal/prefs"
)

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "aleyya",
		Short:        "Chat with OpenRouter models from the terminal",
		SilenceUsage: true,
	}
	root.AddCommand(
		newChatCmd(a),
		newAskCmd(a),
		newModelsCmd(a),
		newKeyCmd(a),
	)
	return root
}

func newChatCmd(a *app) *cobra.Command {
	var model string
	var plain bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		ctrl, err := a.newController(ctx)
		if err != nil {
			return err
		}
		if model != "" {
			if err := ctrl.SelectModel(ctx, model); err != nil {
				return err
			}
		}

		var renderer console.Renderer = console.PlainRenderer{}
		if !plain {
			renderer = console.NewMarkdownRenderer(console.DefaultWrapWidth)
		}

		reader := console.NewLinerReader(a.historyPath())
		defer reader.Close()

		return console.New(ctrl, reader, cmd.OutOrStdout(), renderer, a.logger).Run(ctx)
	})

	cmd.Flags().StringVarP(&model, "model", "m", "", "model key or wire id to start with")
	cmd.Flags().BoolVar(&plain, "plain", false, "print replies without markdown rendering")
	return cmd
}

func newAskCmd(a *app) *cobra.Command {
	var model, imagePath string

	cmd := &cobra.Command{
		Use:   "ask [--model key] [--image path] <prompt...>",
		Short: "Send one message and print the reply",
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		prompt := strings.Join(args, " ")
		if strings.TrimSpace(prompt) == "" && imagePath == "" {
			return errors.New("a prompt or --image is required")
		}

		ctrl, err := a.newController(ctx)
		if err != nil {
			return err
		}
		if model != "" {
			if err := ctrl.SelectModel(ctx, model); err != nil {
				return err
			}
		}
		if imagePath != "" {
			img, err := imaging.LoadFile(imagePath)
			if err != nil {
				return err
			}
			if err := ctrl.SetAttachment(img); err != nil {
				return err
			}
		}

		return console.New(ctrl, nil, cmd.OutOrStdout(), console.PlainRenderer{}, a.logger).Send(ctx, prompt)
	})

	cmd.Flags().StringVarP(&model, "model", "m", "", "model key or wire id")
	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "image file to attach")
	return cmd
}

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models that can be selected",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			ctrl, err := a.newController(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), console.FormatModelList(gateway.Models(), ctrl.SelectedModel().Key))
			return nil
		}),
	}
}

func newKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored OpenRouter API key",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <value>",
			Short: "Store the API key",
			Args:  cobra.ExactArgs(1),
			RunE: a.run(func(cmd *cobra.Command, args []string) error {
				key := strings.TrimSpace(args[0])
				if key == "" {
					return errors.New("api key cannot be empty; use `aleyya key clear`")
				}
				if err := prefs.SaveAPIKey(cmd.Context(), a.store, key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "API key saved: %s\n", console.MaskKey(key))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the stored API key in masked form",
			Args:  cobra.NoArgs,
			RunE: a.run(func(cmd *cobra.Command, _ []string) error {
				key, err := prefs.GetString(cmd.Context(), a.store, prefs.KeyAPIKey)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), console.MaskKey(key))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the stored API key",
			Long: "Remove the stored API key. OPENROUTER_API_KEY is not copied into the\n" +
				"store again until a key is saved with `aleyya key set`.",
			Args: cobra.NoArgs,
			RunE: a.run(func(cmd *cobra.Command, _ []string) error {
				if err := prefs.SaveAPIKey(cmd.Context(), a.store, ""); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "API key cleared.")
				return nil
			}),
		},
	)
	return cmd
}
