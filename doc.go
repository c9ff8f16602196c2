// Package enex2all converts Evernote export archives (.enex) into
// portable per-note folders holding HTML, Markdown and searchable PDF.
//
// # Quick Start
//
// Create a runner from a configuration and process an archive:
//
//	runner, err := enex2all.NewRunner(config.DefaultConfig(), logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer runner.Close()
//
//	summary, err := runner.RunArchive(ctx, "notes.enex", "out")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d converted, %d skipped, %d failed\n",
//	    summary.Converted, summary.Skipped, summary.Failed)
//
// # Conversion Pipeline
//
// Each note passes through these stages:
//
//  1. Archive parsing: the .enex stream is decoded note by note
//  2. Resource extraction: attachments are decoded and written to the
//     note folder, keyed by their content hash
//  3. Text recognition: images bound for the PDF get an OCR pass, with
//     archive-supplied recognition data reused when present
//  4. Normalization: the note body becomes a format-neutral tree
//  5. Rendering: independent renderers write index.html, content.md and
//     the note PDF; one renderer failing does not block the others
//
// The PDF of every converted note is also copied into a flat collection
// next to the output tree. That collection doubles as the resume oracle:
// a re-run skips notes whose PDF already exists there.
//
// # Single-Note Conversion
//
// For one note at a time, use Service directly:
//
//	svc, err := enex2all.NewService(enex2all.WithFormats(enex2all.FormatHTML))
//	defer svc.Close()
//	err = svc.ConvertNote(ctx, n, enex2all.NoteTarget{Dir: "out/my-note"})
//
// # Browser Requirements
//
// PDF generation requires Chrome/Chromium. The go-rod library
// automatically downloads a managed Chromium instance on first run
// (~/.cache/rod/browser/). Use ROD_BROWSER_BIN to specify a custom
// Chrome binary; text recognition additionally requires Tesseract.
package enex2all
