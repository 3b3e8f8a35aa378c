package main

import (
	"github.com/spf13/cobra"

	"csvgrid/internal/config"
	"csvgrid/internal/grid"
)

var queryFlags struct {
	driver         string
	dsn            string
	query          string
	out            string
	name           string
	columns        []string
	key            string
	paginate       bool
	maxRows        int
	noHeader       bool
	footer         bool
	cellDelimiter  string
	rowDelimiter   string
	enclosure      string
	bom            bool
	forceArchive   bool
	archiveMethod  string
	nullDisplay    string
	sanitizeFormat bool
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Export the result of one query",
	Long: `Export the result of a single query to a local file.

When the export is split over several files, or --archive is set, the output is a zip
archive. The file is written to --out as is, so pick the extension to match: a run that fits
in one file without --archive produces plain CSV.

Examples:
  csvgrid query --driver sqlite --dsn ./app.db --query "SELECT * FROM users" --out users.csv
  csvgrid query --driver postgres --dsn "$PG_DSN" --query "SELECT id, total FROM orders ORDER BY id" \
    --column id --column "total:decimal:Total" --max-rows 100000 --archive --out orders.zip`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	f := queryCmd.Flags()
	f.StringVar(&queryFlags.driver, "driver", "sqlite", "driver: mysql, postgres, sqlite, mongo")
	f.StringVar(&queryFlags.dsn, "dsn", "", "connection string")
	f.StringVar(&queryFlags.query, "query", "", "SELECT statement or [db.]collection.find({...})")
	f.StringVar(&queryFlags.out, "out", "", "output path")
	f.StringVar(&queryFlags.name, "name", "data", "base name of generated files")
	f.StringArrayVar(&queryFlags.columns, "column", nil, `column as "field", "field:format" or "field:format:label" (repeatable)`)
	f.StringVar(&queryFlags.key, "key", "", "key column for paginated queries")
	f.BoolVar(&queryFlags.paginate, "paginate", false, "fetch with LIMIT/OFFSET pages")
	f.IntVar(&queryFlags.maxRows, "max-rows", 0, "data rows per file, 0 for one file")
	f.BoolVar(&queryFlags.noHeader, "no-header", false, "omit the header row")
	f.BoolVar(&queryFlags.footer, "footer", false, "write a footer row")
	f.StringVar(&queryFlags.cellDelimiter, "delimiter", ",", "cell delimiter")
	f.StringVar(&queryFlags.rowDelimiter, "row-delimiter", "\r\n", "row delimiter")
	f.StringVar(&queryFlags.enclosure, "enclosure", `"`, "cell enclosure, empty for none")
	f.BoolVar(&queryFlags.bom, "bom", false, "start files with a UTF-8 BOM")
	f.BoolVar(&queryFlags.forceArchive, "archive", false, "archive even a single file")
	f.StringVar(&queryFlags.archiveMethod, "archive-method", "deflate", "archive method: deflate, store, zstd")
	f.StringVar(&queryFlags.nullDisplay, "null", "", "text for NULL values")
	f.BoolVar(&queryFlags.sanitizeFormat, "sanitize", false, "prefix cells starting with = + - @ with a quote")

	_ = queryCmd.MarkFlagRequired("dsn")
	_ = queryCmd.MarkFlagRequired("query")
	_ = queryCmd.MarkFlagRequired("out")
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	showHeader := !queryFlags.noHeader
	def := config.Job{
		Name:           queryFlags.name,
		Driver:         queryFlags.driver,
		DSN:            queryFlags.dsn,
		Query:          queryFlags.query,
		Key:            queryFlags.key,
		Paginate:       queryFlags.paginate,
		ShowHeader:     &showHeader,
		ShowFooter:     queryFlags.footer,
		NullDisplay:    queryFlags.nullDisplay,
		MaxRowsPerFile: queryFlags.maxRows,
		Sanitize:       queryFlags.sanitizeFormat,
		File: config.FileSettings{
			CellDelimiter: &queryFlags.cellDelimiter,
			RowDelimiter:  &queryFlags.rowDelimiter,
			Enclosure:     &queryFlags.enclosure,
			BOM:           queryFlags.bom,
		},
		Archive: config.ArchiveSettings{
			Force:  queryFlags.forceArchive,
			Method: queryFlags.archiveMethod,
		},
		Destination: queryFlags.out,
	}
	for _, c := range queryFlags.columns {
		def.Columns = append(def.Columns, grid.Attr(c))
	}
	if err := def.Validate(); err != nil {
		return err
	}
	return a.runJobs(cmd.Context(), []config.Job{def})
}
