package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/soltixdb/airaudit/internal/services"
)

func newZeroCommand(opts *options) *cobra.Command {
	in := &inputFlags{}
	var start, end string

	cmd := &cobra.Command{
		Use:   "zero",
		Short: "Zero-air baseline check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, opts, in)
			if err != nil {
				return err
			}
			report, err := s.svc.ZeroAir(ctx, s.info.ID, services.WindowRequest{
				Start: start, End: end, Channel: s.channel(in),
			})
			if err != nil {
				_ = s.events.Close()
				return err
			}
			return s.finish(ctx, cmd, opts, in, report, func(cmd *cobra.Command) {
				renderZeroAir(cmd.OutOrStdout(), report)
			})
		},
	}
	in.register(cmd)
	cmd.Flags().StringVar(&start, "start", "", "window start, hh:mm")
	cmd.Flags().StringVar(&end, "end", "", "window end, hh:mm")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newCalibrationCommand(opts *options) *cobra.Command {
	in := &inputFlags{}
	var (
		start, end    string
		concentration float64
	)

	cmd := &cobra.Command{
		Use:   "cal",
		Short: "Calibration-gas recovery check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, opts, in)
			if err != nil {
				return err
			}
			report, err := s.svc.Calibration(ctx, s.info.ID, services.CalibrationRequest{
				WindowRequest: services.WindowRequest{Start: start, End: end, Channel: s.channel(in)},
				Concentration: concentration,
			})
			if err != nil {
				_ = s.events.Close()
				return err
			}
			return s.finish(ctx, cmd, opts, in, report, func(cmd *cobra.Command) {
				renderCalibration(cmd.OutOrStdout(), report)
			})
		},
	}
	in.register(cmd)
	cmd.Flags().StringVar(&start, "start", "", "window start, hh:mm")
	cmd.Flags().StringVar(&end, "end", "", "window end, hh:mm")
	cmd.Flags().Float64Var(&concentration, "concentration", 0, "certified gas concentration")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	_ = cmd.MarkFlagRequired("concentration")
	return cmd
}

func newMDLCommand(opts *options) *cobra.Command {
	in := &inputFlags{}
	req := services.MDLRequest{}

	cmd := &cobra.Command{
		Use:   "mdl",
		Short: "Method detection limit from a spike and a blank window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, opts, in)
			if err != nil {
				return err
			}
			req.Channel = s.channel(in)
			report, err := s.svc.MDLCheck(ctx, s.info.ID, req)
			if err != nil {
				_ = s.events.Close()
				return err
			}
			return s.finish(ctx, cmd, opts, in, report, func(cmd *cobra.Command) {
				renderMDL(cmd.OutOrStdout(), report)
			})
		},
	}
	in.register(cmd)
	cmd.Flags().StringVar(&req.SpikeStart, "spike-start", "", "spike window start, hh:mm")
	cmd.Flags().StringVar(&req.SpikeEnd, "spike-end", "", "spike window end, hh:mm")
	cmd.Flags().StringVar(&req.BlankStart, "blank-start", "", "blank window start, hh:mm")
	cmd.Flags().StringVar(&req.BlankEnd, "blank-end", "", "blank window end, hh:mm")
	cmd.Flags().StringVar(&req.TimeAveraging, "averaging", "none", "time averaging: none, 1m, 5m")
	for _, name := range []string{"spike-start", "spike-end", "blank-start", "blank-end"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newMetCommand(opts *options) *cobra.Command {
	in := &inputFlags{}
	var start, end, reference string

	cmd := &cobra.Command{
		Use:   "imet",
		Short: "Cross-check iMet channels against a Kestrel export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ref, err := os.Open(reference)
			if err != nil {
				return err
			}
			defer func() { _ = ref.Close() }()

			s, err := openSession(ctx, opts, in)
			if err != nil {
				return err
			}
			report, err := s.svc.MetCheck(ctx, s.info.ID, services.MetRequest{Start: start, End: end, Reference: ref})
			if err != nil {
				_ = s.events.Close()
				return err
			}
			return s.finish(ctx, cmd, opts, in, report, func(cmd *cobra.Command) {
				renderMet(cmd.OutOrStdout(), report)
			})
		},
	}
	in.register(cmd)
	cmd.Flags().StringVar(&start, "start", "", "window start, hh:mm")
	cmd.Flags().StringVar(&end, "end", "", "window end, hh:mm")
	cmd.Flags().StringVarP(&reference, "reference", "r", "", "Kestrel LiNK CSV export")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	_ = cmd.MarkFlagRequired("reference")
	return cmd
}
