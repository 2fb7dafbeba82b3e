package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/mirozey/animvault/config"
	"github.com/mirozey/animvault/utils"
	"github.com/mirozey/animvault/vault"
	"github.com/mirozey/animvault/web"

	_ "github.com/mirozey/animvault/anim"
	_ "github.com/mirozey/animvault/skeleton"
)

func main() {
	var addr, dir, encoding, dump string
	var listEncodings bool
	flag.StringVar(&addr, "i", ":8000", "Address of server")
	flag.StringVar(&dir, "dir", ".", "Path to vault directory with asset containers")
	flag.StringVar(&encoding, "encoding", "", "Ansi strings encoding override")
	flag.StringVar(&dump, "dump", "", "Load the named asset, dump it to stdout and exit")
	flag.BoolVar(&listEncodings, "listencodings", false, "Print supported encodings and exit")
	flag.Parse()

	if listEncodings {
		for _, name := range config.ListEncodings() {
			logrus.Info(name)
		}
		return
	}

	manifest, err := vault.ReadManifest(dir)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to read vault manifest")
	}
	if manifest != nil && manifest.Encoding != "" && encoding == "" {
		encoding = manifest.Encoding
	}
	if encoding != "" {
		if err := config.SetEncoding(encoding); err != nil {
			logrus.WithError(err).Fatal("Failed to set encoding")
		}
	}

	v, err := vault.Open(dir)
	if err != nil {
		logrus.WithError(err).Fatalf("Failed to open vault %q", dir)
	}

	if dump != "" {
		inst := v.FindByName(dump)
		if inst == nil {
			logrus.Fatalf("No asset named %q in vault %q", dump, dir)
		}
		if err := v.LoadSync(inst); err != nil {
			logrus.WithError(err).Fatalf("Failed to load asset %q", dump)
		}
		utils.Dump(inst)
		return
	}

	for _, inst := range v.List() {
		v.LoadAsync(inst)
	}
	if err := v.WriteManifest(encoding); err != nil {
		logrus.WithError(err).Warn("Failed to write vault manifest")
	}

	if err := web.StartServer(addr, v); err != nil {
		logrus.WithError(err).Fatal("Server failed")
	}
}
