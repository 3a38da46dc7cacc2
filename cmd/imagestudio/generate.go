package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-image-studio/internal/controller"
	"github.com/tbourn/go-image-studio/internal/domain"
	"github.com/tbourn/go-image-studio/internal/validation"
	"github.com/tbourn/go-image-studio/internal/view"
)

type generateFlags struct {
	size, quality, style string
	example              int
	noRecord             bool
	download             string
	copyURL, copyPrompt  bool
}

func newGenerateCmd(a *app) *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate [prompt...]",
		Short: "Generate one image and record it in history",
		Example: `  imagestudio generate "a red fox in snow"
  imagestudio generate --example 2 --quality hd --download .`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.generate(cmd, strings.Join(args, " "), f)
		},
	}
	cmd.Flags().StringVar(&f.size, "size", string(domain.DefaultSize), "image size (1024x1024, 1024x1792, 1792x1024)")
	cmd.Flags().StringVar(&f.quality, "quality", string(domain.DefaultQuality), "quality (standard, hd)")
	cmd.Flags().StringVar(&f.style, "style", string(domain.DefaultStyle), "style (vivid, natural)")
	cmd.Flags().IntVar(&f.example, "example", -1, "use a starter prompt by index (see 'examples')")
	cmd.Flags().BoolVar(&f.noRecord, "no-record", false, "do not add the result to history")
	cmd.Flags().StringVarP(&f.download, "download", "o", "", "save the image into this directory")
	cmd.Flags().BoolVar(&f.copyURL, "copy-url", false, "copy the image URL to the clipboard")
	cmd.Flags().BoolVar(&f.copyPrompt, "copy-prompt", false, "copy the revised prompt to the clipboard")
	cobra.CheckErr(cmd.MarkFlagDirname("download"))
	return cmd
}

func (a *app) generate(cmd *cobra.Command, prompt string, f generateFlags) error {
	ctx := cmd.Context()
	api := a.apiClient()
	ctl := controller.New(api)

	if f.example >= 0 {
		if err := ctl.SelectExample(f.example); err != nil {
			return err
		}
	}
	if prompt != "" {
		ctl.SetPrompt(prompt)
	}
	if err := applySettings(ctl, f.size, f.quality, f.style); err != nil {
		return err
	}
	res, err := ctl.Submit(ctx)
	fmt.Fprintln(a.out, view.State(ctl.State()))
	if err != nil {
		fmt.Fprintln(a.out, view.Failure(view.NoticeGenerateFail))
		return err
	}
	fmt.Fprintln(a.out, view.Success(view.NoticeGenerated))

	if !f.noRecord {
		store, closeStore, err := a.openHistory(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
		if _, err := ctl.Record(ctx, store); err != nil {
			return err
		}
	}

	if f.download != "" {
		path, err := api.Download(ctx, res.URL, f.download, time.Now())
		if err != nil {
			fmt.Fprintln(a.out, view.Failure(view.NoticeDownloadFail))
			return err
		}
		fmt.Fprintln(a.out, view.Success(view.NoticeDownloaded+" "+path))
	}
	if f.copyURL {
		a.copyNotice(res.URL, view.NoticeURLCopied, view.NoticeURLCopyFail)
	}
	if f.copyPrompt {
		a.copyNotice(res.RevisedPrompt, view.NoticePromptCopied, view.NoticePromptCopyErr)
	}
	return nil
}

func (a *app) copyNotice(text, ok, fail string) {
	if err := copyToClipboard(text); err != nil {
		fmt.Fprintln(a.out, view.Failure(fail))
		return
	}
	fmt.Fprintln(a.out, view.Success(ok))
}

// applySettings stores the settings and checks the whole form with the
// same rules and messages the API applies.
func applySettings(ctl *controller.Controller, size, quality, style string) error {
	ctl.SetSize(domain.Size(size))
	ctl.SetQuality(domain.Quality(quality))
	ctl.SetStyle(domain.Style(style))
	s := ctl.State()
	return validation.ValidateGenerate(domain.GenerationRequest{
		Prompt: s.Prompt, Size: s.Size, Quality: s.Quality, Style: s.Style,
	})
}

func newEnhanceCmd(a *app) *cobra.Command {
	var copyOut bool
	cmd := &cobra.Command{
		Use:   "enhance prompt...",
		Short: "Rewrite a prompt with more vivid detail",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl := controller.New(a.apiClient())
			ctl.SetPrompt(strings.Join(args, " "))
			out, err := ctl.Enhance(cmd.Context())
			if err != nil {
				fmt.Fprintln(a.out, view.Failure(err.Error()))
				return err
			}
			fmt.Fprintln(a.out, out)
			if copyOut {
				a.copyNotice(out, view.NoticePromptCopied, view.NoticePromptCopyErr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&copyOut, "copy", false, "copy the enhanced prompt to the clipboard")
	return cmd
}
