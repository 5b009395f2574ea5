// nudtool is a CLI utility for inspecting, rebuilding and exporting NUD
// model containers.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Faultbox/nudkit/internal/config"
	"github.com/Faultbox/nudkit/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "dump":
		cmdDump(args)
	case "rebuild":
		cmdRebuild(args)
	case "gltf", "export":
		cmdGLTF(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`nudtool - NUD (NDP3) model container utility

Usage:
  nudtool <command> [options]

Commands:
  info <file.nud>                  Show header, sections and meshes
  dump <file.nud>                  Print a YAML summary of the container
  rebuild <in.nud> <out.nud>       Re-serialize and verify a container
  gltf <file.nud> <out.glb>        Export geometry as binary glTF
  config [-save] [-o <path>]       Print the effective config, optionally save it

Common options:
  -config <path>     Config file (default ./nudtool.yaml or user config dir)
  -debug             Enable debug logging
  -names <encoding>  Name table encoding (raw, shift-jis)
  -compress <mode>   rebuild output compression (none, zlib, zstd)
  -skinning          gltf: export joints and weights

Examples:
  nudtool info model.nud
  nudtool rebuild -compress zstd model.nud model.nud.zst
  nudtool gltf -hide "eye_L,eye_R" model.nud model.glb
  nudtool config -names shift-jis -save`)
}

// command parses a subcommand's flags and prepares its environment. usage
// describes the positional arguments.
func command(name, usage string, args []string, minArgs int, extra func(fs *flag.FlagSet)) (*env, *flag.FlagSet) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	var cf config.Flags
	cf.Register(fs)
	if extra != nil {
		extra(fs)
	}
	fs.Parse(args)

	if fs.NArg() < minArgs {
		fmt.Fprintf(os.Stderr, "Usage: nudtool %s [options] %s\n", name, usage)
		os.Exit(1)
	}

	e, err := newEnv(&cf)
	if err != nil {
		fail(err)
	}
	return e, fs
}

func fail(err error) {
	logger.Sync()
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func cmdInfo(args []string) {
	e, fs := command("info", "<file.nud>", args, 1, nil)
	defer logger.Sync()
	if err := e.info(os.Stdout, fs.Arg(0)); err != nil {
		fail(err)
	}
}

func cmdDump(args []string) {
	e, fs := command("dump", "<file.nud>", args, 1, nil)
	defer logger.Sync()
	if err := e.dump(os.Stdout, fs.Arg(0)); err != nil {
		fail(err)
	}
}

func cmdRebuild(args []string) {
	e, fs := command("rebuild", "<in.nud> <out.nud>", args, 2, nil)
	defer logger.Sync()
	if err := e.rebuild(os.Stdout, fs.Arg(0), fs.Arg(1)); err != nil {
		fail(err)
	}
}

func cmdGLTF(args []string) {
	var hide string
	e, fs := command("gltf", "<file.nud> <out.glb>", args, 2, func(fs *flag.FlagSet) {
		fs.StringVar(&hide, "hide", "", "Comma-separated mesh names to hide")
	})
	defer logger.Sync()
	if err := e.exportGLTF(os.Stdout, fs.Arg(0), fs.Arg(1), splitList(hide)); err != nil {
		fail(err)
	}
}

func cmdConfig(args []string) {
	var (
		save bool
		out  string
	)
	e, _ := command("config", "", args, 0, func(fs *flag.FlagSet) {
		fs.BoolVar(&save, "save", false, "Write the effective config to the user config directory")
		fs.StringVar(&out, "o", "", "Write to this path instead (implies -save)")
	})
	defer logger.Sync()
	if err := e.showConfig(os.Stdout, save || out != "", out); err != nil {
		fail(err)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
