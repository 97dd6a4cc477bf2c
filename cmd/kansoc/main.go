// SPDX-License-Identifier: Apache-2.0
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"kansoc/internal/compiler"
	"kansoc/internal/errors"
	"kansoc/internal/ir"
	"kansoc/internal/parser"
	"kansoc/internal/passmgr"
	"kansoc/internal/semantic"
	"kansoc/repl"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kansoc",
		Short:         "kansoc compiles Kanso IR to target bytecode",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newParseCmd())
	root.AddCommand(newCompileCmd())
	root.AddCommand(newBuildCmd())
	root.AddCommand(newIRCmd())
	root.AddCommand(newAsmCmd())
	root.AddCommand(newReplCmd())
	return root
}

// loadContract runs the front end on a .ka source file: scan, parse,
// semantic analysis, then the AST-to-SSA lowering. This is the shared
// front half of the build/ir/asm subcommands.
func loadContract(path string) (*ir.Context, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	contract, parseErrors, scanErrors := parser.ParseSource(path, string(source))
	for _, e := range scanErrors {
		color.Red("scan error at %s:%d:%d: %s", path, e.Position.Line, e.Position.Column, e.Message)
	}
	for _, e := range parseErrors {
		color.Red("parse error at %s:%d:%d: %s", path, e.Position.Line, e.Position.Column, e.Message)
	}
	if len(scanErrors) > 0 || len(parseErrors) > 0 || contract == nil {
		return nil, fmt.Errorf("%s: syntax errors", path)
	}

	analyzer := semantic.NewAnalyzer()
	semanticErrors := analyzer.Analyze(contract)
	reporter := errors.NewErrorReporter(path, string(source))
	fatal := false
	for _, e := range analyzer.GetErrors() {
		fmt.Fprint(os.Stderr, reporter.FormatError(e))
		if e.Level == errors.Error {
			fatal = true
		}
	}
	if fatal {
		return nil, fmt.Errorf("%s: %d semantic error(s)", path, len(semanticErrors))
	}

	builder := ir.NewBuilder(contract.Name.Value)
	return builder.Build(contract, analyzer.Context())
}

func passOptionsFlags(cmd *cobra.Command, opts *passmgr.Options, optLevel *string) {
	flags := cmd.Flags()
	flags.StringVar(optLevel, "opt-level", "", "optimization_level: none|gas|codesize (default gas)")
	flags.BoolVar(&opts.DisableInlining, "disable-inlining", false, "skip the inliner")
	flags.BoolVar(&opts.DisableCSE, "disable-cse", false, "skip common-subexpression elimination")
	flags.BoolVar(&opts.DisableSCCP, "disable-sccp", false, "skip sparse conditional constant propagation")
	flags.BoolVar(&opts.DisableLoadElimination, "disable-load-elimination", false, "skip load elimination")
	flags.BoolVar(&opts.DisableDeadStoreElimination, "disable-dead-store-elimination", false, "skip dead-store elimination")
	flags.BoolVar(&opts.DisableAlgebraicOptimization, "disable-algebraic-optimization", false, "skip peephole simplification")
	flags.BoolVar(&opts.DisableBranchOptimization, "disable-branch-optimization", false, "skip branch rewrites")
	flags.BoolVar(&opts.DisableMem2Var, "disable-mem2var", false, "skip alloca-to-SSA promotion")
	flags.BoolVar(&opts.DisableSimplifyCFG, "disable-simplify-cfg", false, "skip CFG block-merging")
	flags.BoolVar(&opts.DisableRemoveUnusedVariables, "disable-remove-unused-variables", false, "skip unused-variable/param pruning")
	flags.IntVar(&opts.InlineThreshold, "inline-threshold", passmgr.DefaultOptions().InlineThreshold, "callee instruction-count ceiling for inlining")
}

// newBuildCmd runs the whole pipeline: source to bytecode.
func newBuildCmd() *cobra.Command {
	opts := passmgr.DefaultOptions()
	var optLevel string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "build <file.ka>",
		Short: "compile a Kanso source file to bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := loadContract(args[0])
			if err != nil {
				return err
			}
			if optLevel != "" {
				opts.OptimizationLevel = passmgr.OptimizationLevel(optLevel)
			}

			log := logrus.New()
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			} else {
				log.SetLevel(logrus.WarnLevel)
			}

			session := compiler.NewSession(ctx, log)
			bytecode, err := session.Compile(opts)
			if err != nil {
				color.Red("❌ compilation failed: %s", err)
				return err
			}
			fmt.Println(hex.EncodeToString(bytecode.Bytes))
			color.Green("✅ compiled %s (%d bytes)", args[0], len(bytecode.Bytes))
			return nil
		},
	}
	passOptionsFlags(cmd, &opts, &optLevel)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable per-pass debug logging")
	return cmd
}

// newIRCmd prints the unoptimized SSA IR for a source file, in the
// round-trippable text format `compile` reads back.
func newIRCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ir <file.ka>",
		Short: "print the unoptimized SSA IR for a Kanso source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := loadContract(args[0])
			if err != nil {
				return err
			}
			fmt.Print(ir.Print(ctx))
			return nil
		},
	}
}

// newAsmCmd prints the scheduled assembly listing before label
// resolution, the stage between the optimizer and the assembler.
func newAsmCmd() *cobra.Command {
	opts := passmgr.DefaultOptions()
	var optLevel string

	cmd := &cobra.Command{
		Use:   "asm <file.ka>",
		Short: "print the scheduled assembly for a Kanso source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := loadContract(args[0])
			if err != nil {
				return err
			}
			if optLevel != "" {
				opts.OptimizationLevel = passmgr.OptimizationLevel(optLevel)
			}
			log := logrus.New()
			log.SetLevel(logrus.WarnLevel)

			session := compiler.NewSession(ctx, log)
			items, err := session.Assembly(opts)
			if err != nil {
				color.Red("❌ scheduling failed: %s", err)
				return err
			}
			for _, it := range items {
				fmt.Println(it.String())
			}
			return nil
		},
	}
	passOptionsFlags(cmd, &opts, &optLevel)
	return cmd
}

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "interactively parse contract snippets (end a snippet with a blank line)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repl.Start(os.Stdin, os.Stdout)
			return nil
		},
	}
}

// newParseCmd exposes the front-end-only path: parse a .ka source file
// and print its AST, the original behavior of the bare-os.Args CLI this
// command replaced.
func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file.ka>",
		Short: "parse a Kanso source file and print its AST",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			source, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			ast, err := parser.ParseGrammarSource(path, string(source))
			if err != nil {
				reportParseError(string(source), err)
				return err
			}
			fmt.Println(ast.String())
			color.Green("✅ Successfully parsed %s", path)
			return nil
		},
	}
}

// newCompileCmd runs the back-end pipeline alone: read the textual SSA
// IR, verify, optimize to a fixed point, normalize, schedule, and
// assemble. Taking IR text instead of .ka source makes it the
// round-trip harness for hand-written or dumped IR; `build` is the
// source-level equivalent.
func newCompileCmd() *cobra.Command {
	var (
		optLevel        string
		disableInline   bool
		disableCSE      bool
		disableSCCP     bool
		disableLoadElim bool
		disableDSE      bool
		disableAlgebra  bool
		disableBranch   bool
		disableMem2Var  bool
		disableSimpCFG  bool
		disableUnused   bool
		inlineThreshold int
		verbose         bool
	)

	cmd := &cobra.Command{
		Use:   "compile <file.kir>",
		Short: "compile a textual SSA IR file to bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			source, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			ctx, err := ir.Parse(string(source))
			if err != nil {
				color.Red("❌ IR parse error: %s", err)
				return err
			}

			log := logrus.New()
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			} else {
				log.SetLevel(logrus.WarnLevel)
			}

			opts := passmgr.DefaultOptions()
			if optLevel != "" {
				opts.OptimizationLevel = passmgr.OptimizationLevel(optLevel)
			}
			opts.DisableInlining = disableInline
			opts.DisableCSE = disableCSE
			opts.DisableSCCP = disableSCCP
			opts.DisableLoadElimination = disableLoadElim
			opts.DisableDeadStoreElimination = disableDSE
			opts.DisableAlgebraicOptimization = disableAlgebra
			opts.DisableBranchOptimization = disableBranch
			opts.DisableMem2Var = disableMem2Var
			opts.DisableSimplifyCFG = disableSimpCFG
			opts.DisableRemoveUnusedVariables = disableUnused
			if inlineThreshold > 0 {
				opts.InlineThreshold = inlineThreshold
			}

			session := compiler.NewSession(ctx, log)
			bytecode, err := session.Compile(opts)
			if err != nil {
				color.Red("❌ compilation failed: %s", err)
				return err
			}

			fmt.Println(hex.EncodeToString(bytecode.Bytes))
			if verbose {
				fmt.Fprintf(os.Stderr, "jumpdests: %v\n", bytecode.JumpdestMap)
			}
			color.Green("✅ compiled %s (%d bytes)", path, len(bytecode.Bytes))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&optLevel, "opt-level", "", "optimization_level: none|gas|codesize (default gas)")
	flags.BoolVar(&disableInline, "disable-inlining", false, "skip the inliner")
	flags.BoolVar(&disableCSE, "disable-cse", false, "skip common-subexpression elimination")
	flags.BoolVar(&disableSCCP, "disable-sccp", false, "skip sparse conditional constant propagation")
	flags.BoolVar(&disableLoadElim, "disable-load-elimination", false, "skip load elimination")
	flags.BoolVar(&disableDSE, "disable-dead-store-elimination", false, "skip dead-store elimination")
	flags.BoolVar(&disableAlgebra, "disable-algebraic-optimization", false, "skip peephole simplification")
	flags.BoolVar(&disableBranch, "disable-branch-optimization", false, "skip branch rewrites")
	flags.BoolVar(&disableMem2Var, "disable-mem2var", false, "skip alloca-to-SSA promotion")
	flags.BoolVar(&disableSimpCFG, "disable-simplify-cfg", false, "skip CFG block-merging")
	flags.BoolVar(&disableUnused, "disable-remove-unused-variables", false, "skip unused-variable/param pruning")
	flags.IntVar(&inlineThreshold, "inline-threshold", 0, "callee instruction-count ceiling for inlining")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable per-pass debug logging")

	return cmd
}

// reportParseError prints a friendly caret-style parse error message.
func reportParseError(src string, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		color.Red("Unexpected error: %s", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		color.Red("Syntax error at unknown location: %s", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", pos.Column-1) + "^"

	color.Red("❌ Syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column)
	fmt.Println(line)
	color.HiRed(caret)
	fmt.Printf("→ %s\n", pe.Message())
}
