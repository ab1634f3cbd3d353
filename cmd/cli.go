package cmd

import (
	"context"
	"fmt"
	"github.com/mawngo/kcluster/internal/kmeans"
	"github.com/mawngo/kcluster/internal/pointio"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans/plotter"
	"github.com/phsym/console-slog"
	"github.com/spf13/cobra"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"time"
)

func Init() *slog.LevelVar {
	level := &slog.LevelVar{}
	logger := slog.New(
		console.NewHandler(os.Stderr, &console.HandlerOptions{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	slog.SetDefault(logger)
	cobra.EnableCommandSorting = false
	return level
}

type CLI struct {
	command *cobra.Command
}

// NewCLI create new CLI instance and set up application config.
func NewCLI() *CLI {
	level := Init()

	f := flags{
		Clusters: 10,
		Output:   "-",
		Round:    300,
		Empty:    kmeans.EmptyClusterReseed.String(),
	}

	command := cobra.Command{
		Use:   "kcluster [file]",
		Short: "Partition points into k clusters using k-means++",
		Long: "Partition points into k clusters using k-means++.\n\n" +
			"Points are read one per line, coordinates separated by spaces or commas (default file points.txt, - for stdin). " +
			"The cluster index of every point is printed one per line, in input order.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			debug, err := cmd.PersistentFlags().GetBool("debug")
			if err != nil {
				return err
			}
			if debug {
				level.Set(slog.LevelDebug)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "points.txt"
			if len(args) > 0 {
				path = args[0]
			}
			if !cmd.Flags().Changed("seed") {
				f.Seed = time.Now().UnixNano()
			}
			return handle(cmd.Context(), path, f)
		},
	}

	command.Flags().IntVarP(&f.Clusters, "clusters", "k", f.Clusters, "Number of clusters")
	command.Flags().Int64Var(&f.Seed, "seed", f.Seed, "Random seed, equal seeds give equal results (default random)")
	command.Flags().IntVarP(&f.Round, "round", "i", f.Round, "Maximum number of kmeans iterations [0=unlimited]")
	command.Flags().Float64VarP(&f.Delta, "delta", "d", f.Delta, "Delta threshold of convergence (maximum center movement) [0=exact]")
	command.Flags().IntVar(&f.KConcurrency, "kcpu", f.KConcurrency, "Maximum cpu used per pass [0=auto]")
	command.Flags().StringVar(&f.Empty, "empty", f.Empty, "Empty cluster policy [reseed,keep,fail]")
	command.Flags().StringVarP(&f.Output, "out", "o", f.Output, "Output file name [-=stdout]")
	command.Flags().IntVarP(&f.Head, "head", "n", f.Head, "Print only the first n assignments [0=all]")
	command.Flags().BoolVar(&f.Plot, "plot", f.Plot, "Generate a scatter chart png of the clusters (2-dimensional points only)")
	command.PersistentFlags().Bool("debug", false, "Enable debug mode")
	command.Flags().SortFlags = false
	return &CLI{&command}
}

func handle(ctx context.Context, path string, f flags) error {
	now := time.Now()
	policy, err := kmeans.ParseEmptyClusterPolicy(f.Empty)
	if err != nil {
		return err
	}

	d, err := pointio.ReadFile(path)
	if err != nil {
		return err
	}
	points := d.Points()
	slog.Info("Processing",
		slog.String("file", path),
		slog.Int("points", len(points)),
		slog.Int("dimension", points[0].Dimension()),
		slog.Int("k", f.Clusters),
		slog.Int64("seed", f.Seed),
	)

	m, err := kmeans.NewTrainer(f.Clusters,
		kmeans.WithConcurrency(f.KConcurrency),
		kmeans.WithMaxIterations(f.Round),
		kmeans.WithDeltaThreshold(f.Delta),
		kmeans.WithEmptyClusterPolicy(policy),
		kmeans.WithLogger(slog.Default())).
		Fit(ctx, points, rand.New(rand.NewSource(f.Seed)))
	if err != nil {
		return err
	}

	if err := write(f.Output, m.Guesses(), f.Head); err != nil {
		return err
	}
	if f.Plot {
		if err := plot(points, m); err != nil {
			return err
		}
	}
	slog.Info("Clustering completed",
		slog.Duration("took", time.Since(now)),
		slog.Int("iter", m.Iter()),
		slog.Bool("converged", m.Converged()),
		slog.Float64("inertia", m.Inertia()))
	return nil
}

func write(out string, assignments []int, head int) error {
	var w io.Writer = os.Stdout
	if out != "-" {
		o, err := os.Create(out)
		if err != nil {
			return err
		}
		defer func() {
			err := o.Close()
			if err != nil {
				slog.Error("Error closing output file",
					slog.String("out", out),
					slog.Any("err", err))
			}
		}()
		w = o
	}
	return pointio.WriteAssignments(w, assignments, head)
}

// plot renders the clusters with plotter.SimplePlotter, which writes
// <iteration>.png into the working directory.
func plot(points []kmeans.Point, m *kmeans.Model) error {
	if l := points[0].Dimension(); l != 2 {
		return fmt.Errorf("plot requires 2-dimensional points, got %d", l)
	}

	cc := make(clusters.Clusters, m.K())
	for i, c := range m.Centroids() {
		cc[i].Center = clusters.Coordinates(c.Coordinates())
	}
	for i, n := range m.Guesses() {
		cc[n].Observations = append(cc[n].Observations, clusters.Coordinates(points[i].Coordinates()))
	}

	if err := (plotter.SimplePlotter{}).Plot(cc, m.Iter()); err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	slog.Info("Plot written", slog.String("file", fmt.Sprintf("%d.png", m.Iter())))
	return nil
}

type flags struct {
	Clusters     int
	Output       string
	Round        int
	Delta        float64
	KConcurrency int
	Seed         int64
	Empty        string
	Head         int
	Plot         bool
}

func (cli *CLI) Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cli.command.ExecuteContext(ctx); err != nil {
		slog.Error("Clustering failed", slog.Any("err", err))
		stop()
		os.Exit(1)
	}
}
