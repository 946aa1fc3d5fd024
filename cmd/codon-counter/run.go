package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/codon-counter/internal/duckdb"
	"github.com/inodb/codon-counter/internal/extract"
	"github.com/inodb/codon-counter/internal/mpileup"
	"github.com/inodb/codon-counter/internal/output"
	"github.com/inodb/codon-counter/internal/reference"
)

// commandRunner executes bcftools. Tests replace it.
var commandRunner mpileup.Runner = mpileup.ExecRunner

// runConfig is everything the run command reads from flags, config file
// and environment.
type runConfig struct {
	Thresholds extract.Thresholds `mapstructure:"thresholds"`

	Reference string `mapstructure:"reference"`
	RefName   string `mapstructure:"rid"`
	Start     int    `mapstructure:"start"`
	End       int    `mapstructure:"end"`

	OutDir   string `mapstructure:"out_dir"`
	DB       string `mapstructure:"db"`
	Resume   bool   `mapstructure:"resume"`
	Threads  int    `mapstructure:"threads"`
	TmpDir   string `mapstructure:"tmp_dir"`
	Bcftools string `mapstructure:"bcftools"`
	Verbose  bool   `mapstructure:"verbose"`
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] <bam>...",
		Short: "Extract codon windows around candidate sites",
		Long: `Run bcftools mpileup on every BAM file over the region, keep the positions
where a non-reference allele exceeds --alt-nuc-fraction, and tabulate the
codon windows of the reads at those positions.

Tables are written to --out-dir, one file per table with a sample column.
With --db the same tables are stored in a DuckDB database.`,
		Example: `  codon-counter run --ref MN908947.fa --rid MN908947.3 -o out s1.bam s2.bam
  codon-counter run --ref ref.fa --rid chr1 --start 1000 --end 2000 --db results.duckdb *.bam`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usagef("at least one BAM file is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Verbose)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer logger.Sync()

			return runExtract(cmd.Context(), cfg, args, logger)
		},
	}

	defaults := extract.DefaultThresholds()
	fs := cmd.Flags()
	fs.String("ref", "", "Reference FASTA (faidx indexed or gzipped)")
	fs.String("rid", "", "Reference sequence name")
	fs.Int("start", 1, "First position of the region (1-based)")
	fs.Int("end", 0, "Last position of the region (default: end of the reference)")
	fs.StringP("out-dir", "o", "codon-counter-out", "Output directory for the tables")
	fs.String("db", "", "DuckDB database to store results in")
	fs.Bool("resume", false, "Skip samples stored in --db from an unchanged BAM file")
	fs.IntP("threads", "n", 1, "Number of BAM files processed in parallel (0 = all CPUs)")
	fs.String("tmp-dir", "", "Directory for intermediate mpileup files")
	fs.String("bcftools", "bcftools", "bcftools executable")
	fs.Int("min-mapq", defaults.MinMappingQuality, "Minimum mapping quality of a read")
	fs.Int("min-baseq", defaults.MinBaseQuality, "Minimum base quality at the site")
	fs.Int("min-depth", defaults.MinSeqDepth, "Minimum depth at a candidate site")
	fs.Int("max-depth", defaults.MaxSeqDepth, "Maximum reads per pileup column")
	fs.Float64("alt-nuc-fraction", defaults.AltNucFraction, "Minimum fraction of a non-reference base")
	fs.Bool("ignore-overlaps", defaults.IgnoreOverlaps, "Count overlapping mates once")
	fs.Bool("ignore-orphans", defaults.IgnoreOrphans, "Drop paired reads that are not properly paired")
	fs.Bool("exclude-flagged-reads", defaults.ExcludeFlaggedReads, "Keep deletion reads ending inside the deletion out of the indel table")

	bindFlags(fs, map[string]string{
		"reference":                        "ref",
		"rid":                              "rid",
		"start":                            "start",
		"end":                              "end",
		"out_dir":                          "out-dir",
		"db":                               "db",
		"resume":                           "resume",
		"threads":                          "threads",
		"tmp_dir":                          "tmp-dir",
		"bcftools":                         "bcftools",
		"thresholds.min_mapping_quality":   "min-mapq",
		"thresholds.min_base_quality":      "min-baseq",
		"thresholds.min_seq_depth":         "min-depth",
		"thresholds.max_seq_depth":         "max-depth",
		"thresholds.alt_nuc_fraction":      "alt-nuc-fraction",
		"thresholds.ignore_overlaps":       "ignore-overlaps",
		"thresholds.ignore_orphans":        "ignore-orphans",
		"thresholds.exclude_flagged_reads": "exclude-flagged-reads",
	})

	return cmd
}

func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, flag := range keys {
		viper.BindPFlag(key, fs.Lookup(flag))
	}
}

func loadRunConfig() (runConfig, error) {
	var cfg runConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.Reference == "" {
		return cfg, usagef("--ref is required")
	}
	if cfg.RefName == "" {
		return cfg, usagef("--rid is required")
	}
	if cfg.Start < 1 {
		return cfg, usagef("--start must be >= 1, got %d", cfg.Start)
	}
	if cfg.End != 0 && cfg.End < cfg.Start {
		return cfg, usagef("--end %d is before --start %d", cfg.End, cfg.Start)
	}
	if cfg.Resume && cfg.DB == "" {
		return cfg, usagef("--resume requires --db")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return cfg, usageError{err}
	}
	return cfg, nil
}

func runExtract(ctx context.Context, cfg runConfig, bams []string, logger *zap.Logger) error {
	ref, err := reference.Load(cfg.Reference, cfg.RefName)
	if err != nil {
		return err
	}

	region := extract.Region{RefName: cfg.RefName, Start: cfg.Start, End: cfg.End}
	if region.End == 0 || region.End > ref.Len() {
		region.End = ref.Len()
	}
	logger.Info("loaded reference",
		zap.String("path", cfg.Reference),
		zap.String("region", region.String()))

	var store *duckdb.Store
	if cfg.DB != "" {
		store, err = duckdb.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer store.Close()

		if cfg.Resume {
			bams, err = pendingSources(store, bams, logger)
			if err != nil {
				return err
			}
		}
	}

	tables, err := output.CreateTables(cfg.OutDir)
	if err != nil {
		return err
	}

	provider := mpileup.NewBcftools(cfg.Reference, cfg.TmpDir, cfg.Thresholds)
	provider.Binary = cfg.Bcftools
	provider.SetRunner(commandRunner)
	provider.SetLogger(logger)

	ex := extract.NewExtractor(cfg.Thresholds, region, ref, provider)
	ex.SetLogger(logger)

	var failed, skipped int
	runErr := ex.RunAll(ctx, bams, cfg.Threads, func(r extract.WorkResult) error {
		switch {
		case r.Skipped():
			skipped++
		case r.Err != nil:
			failed++
			return nil
		}

		if err := tables.Write(r.Result); err != nil {
			return err
		}
		if store == nil {
			return nil
		}
		fp, err := duckdb.StatFile(r.Path)
		if err != nil {
			return err
		}
		return store.WriteResult(r.Result, fp)
	})

	if err := errors.Join(runErr, tables.Close()); err != nil {
		return err
	}

	logger.Info("finished",
		zap.Int("alignments", len(bams)),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.String("out_dir", cfg.OutDir))

	if failed > 0 {
		return fmt.Errorf("%d of %d alignments failed", failed, len(bams))
	}
	return nil
}

// pendingSources drops the BAM files whose results are already stored.
func pendingSources(store *duckdb.Store, bams []string, logger *zap.Logger) ([]string, error) {
	var pending []string
	for _, path := range bams {
		fp, err := duckdb.StatFile(path)
		if err != nil {
			return nil, err
		}
		ok, err := store.UpToDate(extract.SampleName(path), fp)
		if err != nil {
			return nil, err
		}
		if ok {
			logger.Info("sample up to date, skipping", zap.String("path", path))
			continue
		}
		pending = append(pending, path)
	}
	return pending, nil
}
