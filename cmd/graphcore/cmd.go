package main

import (
	"flag"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/born-ml/graphcore/internal/device"
	"github.com/born-ml/graphcore/internal/envconfig"
	"github.com/born-ml/graphcore/internal/eval"
	"github.com/born-ml/graphcore/internal/graph"
	"github.com/born-ml/graphcore/internal/ops"
	"github.com/born-ml/graphcore/internal/store"
	"github.com/born-ml/graphcore/internal/value"
	"github.com/born-ml/graphcore/internal/version"
)

// NewCLI builds the root command.
func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "graphcore",
		Short: "Inspect and evaluate graphcore models",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
		},
	}

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)
	rootCmd.PersistentFlags().String("device", "", "Device to evaluate on (default from GRAPHCORE_DEVICE, else cpu)")

	cobra.EnableCommandSorting = false

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "graphcore version %s\n", version.Version)
			return nil
		},
	}

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List devices and host CPU details",
		Args:  cobra.NoArgs,
		RunE:  devicesHandler,
	}

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Show environment configuration",
		Args:  cobra.NoArgs,
		RunE:  envHandler,
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect MODEL",
		Short: "Show the variables and nodes of a saved model",
		Long:  "Show the variables and nodes of a saved model. MODEL is a local path or a gs://bucket/object URI.",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectHandler,
	}

	evalCmd := &cobra.Command{
		Use:   "eval MODEL",
		Short: "Evaluate a saved model on constant inputs",
		Args:  cobra.ExactArgs(1),
		RunE:  evalHandler,
	}
	evalCmd.Flags().Float64("fill", 1, "Value every input element is set to")
	evalCmd.Flags().Int("samples", 1, "Number of samples per input")
	evalCmd.Flags().Bool("deterministic", false, "Force deterministic reductions")

	rootCmd.AddCommand(
		versionCmd,
		devicesCmd,
		envCmd,
		inspectCmd,
		evalCmd,
	)

	return rootCmd
}

func deviceFlag(cmd *cobra.Command) (device.Descriptor, error) {
	s, err := cmd.Flags().GetString("device")
	if err != nil {
		return device.Descriptor{}, err
	}
	if s == "" {
		return device.Default(), nil
	}
	return device.Parse(s)
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

func devicesHandler(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	var data [][]string
	for _, d := range device.Detected() {
		status := "available"
		if !d.Supported {
			status = "unsupported"
		}
		data = append(data, []string{d.String(), d.Kind.String(), strconv.Itoa(d.ID), status})
	}
	table := newTable(out, []string{"DEVICE", "KIND", "ID", "STATUS"})
	table.AppendBulk(data)
	table.Render()
	fmt.Fprintln(out)

	host := device.HostInfo()
	table = newTable(out, []string{"HOST", ""})
	table.AppendBulk([][]string{
		{"cpu", host.Brand},
		{"vendor", host.Vendor},
		{"physical cores", strconv.Itoa(host.PhysicalCores)},
		{"logical cores", strconv.Itoa(host.LogicalCores)},
		{"cache line", strconv.Itoa(host.CacheLine)},
		{"vector unit", strconv.FormatBool(host.HasVectorUnit())},
		{"features", strings.Join(host.Features, " ")},
	})
	table.Render()
	return nil
}

func envHandler(cmd *cobra.Command, args []string) error {
	vars := envconfig.AsMap()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	slices.Sort(names)

	var data [][]string
	for _, name := range names {
		v := vars[name]
		val := ""
		if v.Value != nil {
			val = fmt.Sprint(v.Value)
		}
		data = append(data, []string{v.Name, val, v.Description})
	}
	table := newTable(cmd.OutOrStdout(), []string{"NAME", "VALUE", "DESCRIPTION"})
	table.AppendBulk(data)
	table.Render()
	return nil
}

func inspectHandler(cmd *cobra.Command, args []string) error {
	dev, err := deviceFlag(cmd)
	if err != nil {
		return err
	}
	fn, err := store.Load(cmd.Context(), args[0], dev)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "function %s (%s)\n\n", fn.Name(), fn.UID())

	var data [][]string
	for _, v := range fn.Inputs() {
		data = append(data, []string{v.Name(), v.Kind().String(), fmt.Sprint(v.Shape()), v.DType().String()})
	}
	for _, v := range fn.Outputs() {
		data = append(data, []string{v.Name(), v.Kind().String(), fmt.Sprint(v.Shape()), v.DType().String()})
	}
	table := newTable(out, []string{"VARIABLE", "KIND", "SHAPE", "DTYPE"})
	table.AppendBulk(data)
	table.Render()
	fmt.Fprintln(out)

	data = nil
	for i, node := range fn.Nodes() {
		operands := make([]string, 0, len(node.Operands()))
		for _, o := range node.Operands() {
			operands = append(operands, o.Name())
		}
		data = append(data, []string{strconv.Itoa(i), node.Op(), node.Name(), strings.Join(operands, ", ")})
	}
	table = newTable(out, []string{"#", "OP", "NAME", "OPERANDS"})
	table.AppendBulk(data)
	table.Render()
	return nil
}

func evalHandler(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := klog.FromContext(ctx)

	dev, err := deviceFlag(cmd)
	if err != nil {
		return err
	}
	fill, err := cmd.Flags().GetFloat64("fill")
	if err != nil {
		return err
	}
	samples, err := cmd.Flags().GetInt("samples")
	if err != nil {
		return err
	}
	if samples < 1 {
		return fmt.Errorf("--samples must be positive, got %d", samples)
	}
	deterministic, err := cmd.Flags().GetBool("deterministic")
	if err != nil {
		return err
	}

	fn, err := store.Load(ctx, args[0], dev)
	if err != nil {
		return err
	}

	inputs := make(map[*graph.Variable]*value.Value)
	for _, arg := range fn.Arguments() {
		v, err := filledValue(arg, fill, samples, dev)
		if err != nil {
			return fmt.Errorf("binding %s: %w", arg.Name(), err)
		}
		defer v.Release()
		inputs[arg] = v
	}

	cfg := eval.DefaultConfig()
	if deterministic {
		cfg.Determinism.Deterministic = true
	}
	outputs := make(map[*graph.Variable]*value.Value)
	for _, o := range fn.Outputs() {
		outputs[o] = nil
	}
	if err := eval.New(cfg).Evaluate(ctx, fn, inputs, outputs, dev); err != nil {
		return err
	}
	log.V(2).Info("evaluated model", "function", fn.Name(), "samples", samples)

	out := cmd.OutOrStdout()
	for _, o := range fn.Outputs() {
		raw, err := outputs[o].Acquire()
		if err != nil {
			return err
		}
		data := ops.ToFloat64(raw)
		raw.Release()
		outputs[o].Release()

		size := o.Shape().NumElements()
		fmt.Fprintf(out, "%s %v %s\n", o.Name(), o.Shape(), o.DType())
		for s := 0; s*size < len(data); s++ {
			fmt.Fprintf(out, "  [%d] %s\n", s, formatFloats(data[s*size:(s+1)*size]))
		}
	}
	return nil
}

// filledValue returns a Value for arg holding samples copies of fill.
func filledValue(arg *graph.Variable, fill float64, samples int, dev device.Descriptor) (*value.Value, error) {
	shape := arg.Shape().WithSamples(samples)
	data := make([]float64, shape.NumElements())
	for i := range data {
		data[i] = fill
	}
	raw, err := ops.FromFloat64(data, shape, arg.DType(), dev.Kind)
	if err != nil {
		return nil, err
	}
	return value.Wrap(raw, dev), nil
}

func formatFloats(data []float64) string {
	parts := make([]string, len(data))
	for i, f := range data {
		parts[i] = strconv.FormatFloat(f, 'g', 6, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
