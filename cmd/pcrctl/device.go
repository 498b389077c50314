package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-thermocycle/controller"
)

func parameterNames(filter func(controller.Parameter) bool) string {
	var names []string
	for _, p := range controller.Parameters() {
		if filter(p) {
			names = append(names, p.String())
		}
	}

	return strings.Join(names, ", ")
}

func getCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <parameter>",
		Short: "Read a controller parameter",
		Long: "Read a controller parameter. Readable parameters: " +
			parameterNames(controller.Parameter.Gettable) + ".",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := controller.ParseParameter(args[0])
			if err != nil {
				return err
			}

			sess, err := a.open(cmd)
			if err != nil {
				return err
			}

			v, err := sess.Read(p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %.2f\n", p, v)

			return nil
		},
	}
}

func setCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <parameter> <value>",
		Short: "Write a controller parameter",
		Long: "Write a controller parameter. Writable parameters: " +
			parameterNames(controller.Parameter.Settable) + ".",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := controller.ParseParameter(args[0])
			if err != nil {
				return err
			}
			v, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("pcrctl: invalid value %q: %w", args[1], err)
			}

			sess, err := a.open(cmd)
			if err != nil {
				return err
			}

			if err := sess.Write(p, v); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s set to %.2f\n", p, v)

			return nil
		},
	}
}

func controlCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "control <on|off>",
		Short:     "Switch the controller output on or off",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var on bool
			switch strings.ToLower(args[0]) {
			case "on":
				on = true
			case "off":
			default:
				return fmt.Errorf("pcrctl: expected on or off, got %q", args[0])
			}

			sess, err := a.open(cmd)
			if err != nil {
				return err
			}

			if err := sess.SetRunFlag(on); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "control %s\n", strings.ToLower(args[0]))

			return nil
		},
	}
}
