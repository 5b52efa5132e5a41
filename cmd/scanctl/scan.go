package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"resumematch/scanner-web/internal/models"
	"resumematch/scanner-web/internal/services"
)

const (
	lastScanKey = "last_scan"
	draftKey    = "draft"
)

func scanCmd(c *cli) *cobra.Command {
	var (
		resume, resumeFile string
		pdfPath, docxPath  string
		jd, jdFile         string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Score a resume against a job description",
		Long: "Score a resume against a job description. The resume is given as text, a text\n" +
			"file, a PDF or a DOCX. Without any input the draft from `scanctl load` is used.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireAuth(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()

			in := services.ScanInput{Mode: models.ScanModeText, ResumeText: resume, JDText: jd}

			if resumeFile != "" {
				text, err := readText(resumeFile)
				if err != nil {
					return err
				}
				in.ResumeText = text
			}
			if jdFile != "" {
				text, err := readText(jdFile)
				if err != nil {
					return err
				}
				in.JDText = text
			}
			if path := firstNonEmpty(pdfPath, docxPath); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				in.Mode = models.ScanModePDF
				if docxPath != "" {
					in.Mode = models.ScanModeDocx
				}
				in.FileName = filepath.Base(path)
				in.File = data
			}

			if in.ResumeText == "" && in.JDText == "" && in.File == nil {
				var draft models.ScanPrefill
				found, err := c.getState(ctx, draftKey, &draft)
				if err != nil {
					return err
				}
				if found {
					in.ResumeText = draft.ResumeText
					in.JDText = draft.JDText
				}
			}

			outcome, err := c.tab.Scans.Scan(ctx, in)
			if err != nil {
				return err
			}

			if err := c.putState(ctx, lastScanKey, models.SaveScanRequest{
				Mode:       outcome.Mode,
				ResumeText: outcome.ResumeText,
				JDText:     in.JDText,
				Result:     outcome.Result,
			}); err != nil {
				return err
			}

			if c.wantJSON() {
				return c.printJSON(cmd.OutOrStdout(), outcome)
			}
			printResult(cmd.OutOrStdout(), outcome)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&resume, "resume", "", "resume text")
	flags.StringVar(&resumeFile, "resume-file", "", "plain text resume file (- for stdin)")
	flags.StringVar(&pdfPath, "pdf", "", "PDF resume")
	flags.StringVar(&docxPath, "docx", "", "DOCX resume")
	flags.StringVar(&jd, "jd", "", "job description text")
	flags.StringVar(&jdFile, "jd-file", "", "job description file (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("resume", "resume-file", "pdf", "docx")
	cmd.MarkFlagsMutuallyExclusive("jd", "jd-file")

	return cmd
}

func saveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save the last scan of this terminal to history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireAuth(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()

			var last models.SaveScanRequest
			found, err := c.getState(ctx, lastScanKey, &last)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("nothing to save, run `scanctl scan` first")
			}

			id, err := c.tab.Scans.Save(ctx, last)
			if err != nil {
				return err
			}

			if id == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Saved to history.")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved to history as %s.\n", id)
			}
			return nil
		},
	}
}

func printResult(w io.Writer, outcome *models.ScanOutcome) {
	r := outcome.Result
	fmt.Fprintf(w, "Score:    %.0f%%\n", r.Score*100)
	fmt.Fprintf(w, "Overlap:  %.0f%%\n", r.OverlapRatio*100)
	if outcome.Document != nil {
		fmt.Fprintf(w, "Document: %s (%d bytes", outcome.Document.Name, outcome.Document.Size)
		if outcome.Document.Pages > 0 {
			fmt.Fprintf(w, ", %d pages", outcome.Document.Pages)
		}
		fmt.Fprintln(w, ")")
	}
	fmt.Fprintf(w, "Matched:  %s\n", joinOrNone(r.MatchedSkills))
	fmt.Fprintf(w, "Missing:  %s\n", joinOrNone(r.MissingSkills))
	if len(r.ExtraSkills) > 0 {
		fmt.Fprintf(w, "Extra:    %s\n", strings.Join(r.ExtraSkills, ", "))
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func readText(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
