// zoofusefs mounts a ZooKeeper-like tree as a POSIX filesystem via FUSE.
// Grounded on upspin's cmd/dfuse main.go: parse flags, build a context
// (here, a Session), mount, and serve.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"bazil.org/fuse"
	bazilfs "bazil.org/fuse/fs"
	"github.com/sirupsen/logrus"

	"zoofs.io/flags"
	"zoofs.io/fsops"
	zlog "zoofs.io/log"
	"zoofs.io/session"
	"zoofs.io/store"
)

// splitKernelArgs separates args on the first literal "--" token: the
// args before it belong to the kernel binding (main discards them, since
// this module's own mount call takes no such options), the args after it
// are this parser's.
func splitKernelArgs(args []string) (kernelArgs, ourArgs []string) {
	for i, a := range args {
		if a == "--" {
			return args[:i], args[i+1:]
		}
	}
	return nil, args
}

func main() {
	flagSet := flag.NewFlagSet("zoofusefs", flag.ExitOnError)
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [kernel-opts] -- [flags] mountpoint\n", os.Args[0])
		flagSet.PrintDefaults()
	}
	// Args before a literal "--" token belong to the kernel binding
	// (bazil.org/fuse's own mount options); only the args after it are
	// this parser's. With no "--" present, the whole tail is ours.
	_, ourArgs := splitKernelArgs(os.Args[1:])
	if err := flags.Parse(flagSet, ourArgs); err != nil {
		log.Fatal(err)
	}

	if err := zlog.SetLevel(flags.LogLevel.String()); err != nil {
		log.Fatal(err)
	}
	if flags.LogFormat == "structured" {
		zlog.Register(zlog.NewCategorizedAppender(logrus.StandardLogger(), "zoofusefs"))
		zlog.SetOutput(nil)
	}

	client := store.NewZKClient()
	sess := session.New(session.Config{
		Hosts:       strings.Split(flags.ZooHosts, ","),
		AuthScheme:  flags.ZooAuthScheme,
		AuthToken:   flags.ZooAuthentication,
		RootPath:    flags.ZooPath,
		LeafMode:    flags.LeafMode.Value(),
		MaxFileSize: flags.MaxFileSize,
	}, client)
	defer sess.Close()

	// The connection barrier blocks the first FsOps call, not mount
	// itself; dial here so a bad ensemble address fails fast instead of
	// surfacing as EIO on the first syscall through the mount.
	if _, err := sess.Handle(); err != nil {
		log.Fatalf("zoofusefs: connecting to %s: %v", flags.ZooHosts, err)
	}

	zfs := newZooFS(fsops.New(sess))

	conn, err := fuse.Mount(
		flags.MountPoint,
		fuse.FSName("zoofusefs"),
		fuse.Subtype("zoofs"),
		fuse.LocalVolume(),
		fuse.VolumeName("zoofs:"+flags.ZooPath),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	if err := bazilfs.Serve(conn, zfs); err != nil {
		log.Fatal(err)
	}

	<-conn.Ready
	if err := conn.MountError; err != nil {
		log.Fatal(err)
	}
}
