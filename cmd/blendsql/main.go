package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	sql "github.com/gaswelder/blendsql"
	"github.com/gaswelder/blendsql/config"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	var (
		configPath  string
		tables      []string
		verbose     bool
		parallelism int
		explain     bool
	)
	cmd := &cobra.Command{
		Use:           "blendsql [flags] <query>",
		Short:         "Run an SQL query over JSON files",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				cfg, err = config.Load(configPath)
				if err != nil {
					return err
				}
			}
			for _, t := range tables {
				if err := cfg.AddTable(t); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("verbose") {
				cfg.Verbose = verbose
			}
			if cmd.Flags().Changed("parallelism") {
				cfg.Parallelism = parallelism
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if explain {
				q, err := sql.Parse(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, sql.FormatQuery(q))
				return nil
			}

			logger, err := newLogger(cfg.Verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			sources, closeAll, err := openTables(cfg, stdin)
			if err != nil {
				return err
			}
			defer closeAll()

			e := sql.New(sources, sql.WithLogger(logger), sql.WithParallelism(cfg.Parallelism))
			rows, err := e.ExecString(args[0])
			if err != nil {
				return err
			}
			for _, r := range rows {
				j, err := rowToJSON(r)
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, j)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML file listing tables and settings")
	cmd.Flags().StringArrayVarP(&tables, "table", "t", nil, "table as name=path, repeatable; path - is stdin")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log query execution")
	cmd.Flags().IntVarP(&parallelism, "parallelism", "j", 1, "number of WHERE predicates evaluated at once")
	cmd.Flags().BoolVar(&explain, "explain", false, "print the parsed query instead of running it")
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// openTables opens every configured table. The returned function closes
// the files that were opened for streaming.
func openTables(cfg *config.Config, stdin io.Reader) (map[string]sql.Table, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	sources := map[string]sql.Table{}
	for name, path := range cfg.Tables {
		switch {
		case path == "-":
			sources[name] = sql.JSONStream(stdin)
		case config.IsStream(path):
			f, err := os.Open(path)
			if err != nil {
				closeAll()
				return nil, nil, errors.Wrapf(err, "failed to open table %s", name)
			}
			files = append(files, f)
			sources[name] = sql.JSONStream(f)
		default:
			t, err := sql.ReadJSONTable(path)
			if err != nil {
				closeAll()
				return nil, nil, errors.Wrapf(err, "failed to load table %s", name)
			}
			sources[name] = t
		}
	}
	return sources, closeAll, nil
}

func rowToJSON(r sql.Row) (string, error) {
	m := map[string]any{}
	for _, c := range r {
		n := c.Name
		if _, ok := m[n]; ok {
			i := 0
			for {
				i++
				n = fmt.Sprintf("%s_%d", c.Name, i)
				if _, ok := m[n]; !ok {
					break
				}
			}
		}
		m[n] = jsonValue(c.Data)
	}
	data, err := json.Marshal(m)
	return string(data), err
}

func jsonValue(v sql.Value) any {
	if items, ok := v.Data.([]sql.Value); ok {
		r := make([]any, len(items))
		for i, item := range items {
			r[i] = jsonValue(item)
		}
		return r
	}
	return v.Data
}
