package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/go-fat/fat12"
	"github.com/go-fat/fat12/block"
	"github.com/go-fat/fat12/fat12fs"
	"github.com/go-fat/fat12/geometry"
)

func main() {
	app := cli.App{
		Usage: "Inspect and format FAT12 volume images",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "trace on-disk mutations to stderr"},
		},
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Format an image file with a fresh FAT12 volume",
				ArgsUsage: "IMAGE_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "geometry", Usage: "predefined geometry slug, e.g. 1440k"},
					&cli.UintFlag{Name: "sectors", Usage: "total sectors, if not using a predefined geometry"},
				},
				Action: formatImage,
			},
			{
				Name:      "ls",
				Usage:     "List the entries of a directory by handle (1 = root)",
				ArgsUsage: "IMAGE_FILE [HANDLE]",
				Action:    listDirectory,
			},
			{
				Name:      "cat",
				Usage:     "Print a file's contents to stdout by handle",
				ArgsUsage: "IMAGE_FILE HANDLE",
				Action:    catFile,
			},
			{
				Name:      "mkdir",
				Usage:     "Create a directory under a parent handle",
				ArgsUsage: "IMAGE_FILE PARENT_HANDLE NAME",
				Action:    makeDirectory,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

// traceLoggerFor returns a stderr logger when --verbose was given, nil
// otherwise.
func traceLoggerFor(c *cli.Context) *log.Logger {
	if !c.Bool("verbose") {
		return nil
	}
	return log.New(os.Stderr, "fat12ctl: ", 0)
}

func openPartition(path string) (*os.File, block.Partition, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	totalSectors := uint(info.Size()) / block.SectorSize
	return f, block.FromReadWriteSeeker(f, totalSectors, 0), nil
}

func formatImage(c *cli.Context) error {
	path := c.Args().Get(0)
	if path == "" {
		return fmt.Errorf("IMAGE_FILE is required")
	}

	opts := fat12fs.DefaultFormatOptions()
	var totalSectors uint

	if slug := c.String("geometry"); slug != "" {
		g, err := geometry.ByName(slug)
		if err != nil {
			return err
		}
		opts = g.FormatOptions()
		totalSectors = g.TotalSectors
	} else {
		totalSectors = c.Uint("sectors")
		if totalSectors == 0 {
			return fmt.Errorf("either --geometry or --sectors must be given")
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Truncate(int64(totalSectors) * block.SectorSize); err != nil {
		return err
	}

	partition := block.FromReadWriteSeeker(f, totalSectors, 0)
	drv, err := fat12.OnCreate(partition, opts)
	if err != nil {
		return err
	}
	drv.Volume().SetLogger(traceLoggerFor(c))
	return drv.OnClose()
}

func listDirectory(c *cli.Context) error {
	path := c.Args().Get(0)
	if path == "" {
		return fmt.Errorf("IMAGE_FILE is required")
	}
	handle := fat12fs.RootHandle
	if c.Args().Len() > 1 {
		var raw uint
		if _, err := fmt.Sscanf(c.Args().Get(1), "%d", &raw); err != nil {
			return err
		}
		handle = fat12fs.Handle(raw)
	}

	f, partition, err := openPartition(path)
	if err != nil {
		return err
	}
	defer f.Close()

	drv, err := fat12.OnLoad(partition)
	if err != nil {
		return err
	}
	drv.Volume().SetLogger(traceLoggerFor(c))
	defer drv.OnClose()

	for n := uint(0); ; n++ {
		entry, err := drv.Readdir(handle, n)
		if err != nil {
			break
		}
		fmt.Printf("%-20s handle=%d\n", entry.Name, entry.Handle)
	}
	return nil
}

func catFile(c *cli.Context) error {
	path := c.Args().Get(0)
	handleArg := c.Args().Get(1)
	if path == "" || handleArg == "" {
		return fmt.Errorf("IMAGE_FILE and HANDLE are required")
	}

	var raw uint
	if _, err := fmt.Sscanf(handleArg, "%d", &raw); err != nil {
		return err
	}
	handle := fat12fs.Handle(raw)

	f, partition, err := openPartition(path)
	if err != nil {
		return err
	}
	defer f.Close()

	drv, err := fat12.OnLoad(partition)
	if err != nil {
		return err
	}
	defer drv.OnClose()

	st, err := drv.Fstat(handle)
	if err != nil {
		return err
	}

	buf := make([]byte, st.Size)
	n, err := drv.Read(handle, buf, 0)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(buf[:n])
	return err
}

func makeDirectory(c *cli.Context) error {
	path := c.Args().Get(0)
	parentArg := c.Args().Get(1)
	name := c.Args().Get(2)
	if path == "" || parentArg == "" || name == "" {
		return fmt.Errorf("IMAGE_FILE, PARENT_HANDLE, and NAME are required")
	}

	var raw uint
	if _, err := fmt.Sscanf(parentArg, "%d", &raw); err != nil {
		return err
	}
	parent := fat12fs.Handle(raw)

	f, partition, err := openPartition(path)
	if err != nil {
		return err
	}
	defer f.Close()

	drv, err := fat12.OnLoad(partition)
	if err != nil {
		return err
	}
	drv.Volume().SetLogger(traceLoggerFor(c))
	defer drv.OnClose()

	return drv.Mkdir(parent, name)
}
