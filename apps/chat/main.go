package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/activity"
	"github.com/trezcool/masomo-portal/core/chat"
	"github.com/trezcool/masomo-portal/core/user"
	logsvc "github.com/trezcool/masomo-portal/services/logger"
	"github.com/trezcool/masomo-portal/storage"
	"github.com/trezcool/masomo-portal/storage/localstore"
)

func main() {
	as := flag.String("as", "", "Your username.")
	with := flag.String("with", "", "The username of the person to chat with.")
	logPath := flag.String("log", "chat.log", "Log file; the terminal belongs to the UI.")
	flag.Parse()

	if *as == "" || *with == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*as, *with, *logPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run(selfUname, peerUname, logPath string) error {
	conf := core.NewConfig()

	logFile, err := tea.LogToFile(logPath, "CHAT")
	if err != nil {
		return errors.Wrap(err, "opening log file")
	}
	defer logFile.Close()

	logger := logsvc.NewRollbarLogger(log.New(logFile, "CHAT : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	defer logger.Close()

	ctx := context.Background()
	store, err := storage.Open(ctx, conf.Store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing store", err)
		}
	}()

	ids := core.NewUUIDGen()
	usrSvc := user.NewService(localstore.NewUserRepository(store, ids), logger)
	actSvc := activity.NewService(localstore.NewActivityRepository(store, ids), conf.Tutor.DetailsLimit)
	chatSvc := chat.NewService(localstore.NewChatRepository(store, ids, nil), usrSvc, actSvc, logger, conf.Chat)

	self, err := usrSvc.GetByUsername(ctx, selfUname)
	if err != nil {
		return errors.Wrapf(err, "finding %q", selfUname)
	}
	peer, err := usrSvc.GetByUsername(ctx, peerUname)
	if err != nil {
		return errors.Wrapf(err, "finding %q", peerUname)
	}
	if self.ID == peer.ID {
		return errors.New("cannot chat with yourself")
	}
	if _, err = chatSvc.Open(ctx, self.ID, peer.ID); err != nil {
		return errors.Wrapf(err, "opening conversation with %q", peerUname)
	}

	sync := chat.NewSynchronizer(chatSvc, self.ID, peer.ID, conf.Chat.PollInterval, logger)
	if err = sync.Start(ctx); err != nil {
		logger.Warn("initial chat load failed", err)
	}
	defer sync.Stop()

	p := tea.NewProgram(newModel(sync, self, peer, conf.Chat.MaxMessageLength), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
