/*
Package cli provides command-line interface utilities for Tally.

The cli package includes output formatters, progress reporters, and
common CLI helpers used by the tally command.

Output Formatting:

The cli package supports multiple output formats (text, JSON, CSV) for
displaying command results:

	formatter := cli.NewFormatter(cli.FormatJSON)
	data := MyCommandResult{...}
	if err := formatter.FormatTo(os.Stdout, data); err != nil {
		return err
	}

The CSV formatter takes pre-rendered rows:

	formatter := &cli.CSVFormatter{Headers: []string{"api_key", "total"}}
	rows := [][]string{{"sk-l***3456", "42"}}
	err := formatter.FormatTo(os.Stdout, rows)

Progress Reporting:

For long-running operations, use the progress reporter:

	progress := cli.NewProgressReporter(os.Stdout)
	progress.Start(totalCalls)
	for i := 0; i < totalCalls; i++ {
		// Do work
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	sigChan := cli.WaitForShutdown()
	select {
	case sig := <-sigChan:
		// Stop work, flush state
	}
*/
package cli
