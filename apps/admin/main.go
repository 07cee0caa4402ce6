package main

import (
	"log"
	"os"

	"github.com/trezcool/masomo-portal/core"
	logsvc "github.com/trezcool/masomo-portal/services/logger"
)

func main() {
	conf := core.NewConfig()
	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, conf)

	cli := commandLine{conf: conf, logger: logger, out: os.Stdout}
	err := cli.run(os.Args)
	if cerr := cli.close(); cerr != nil {
		logger.Error("closing store", cerr)
	}
	logger.Close()

	if err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
