package main

import (
	"context"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"groupme-archiver/internal/groupme"
	"groupme-archiver/internal/storage"
	"groupme-archiver/internal/storage/zapadapter"
)

type envConfig struct {
	Token     string `env:"GROUPME_TOKEN,required"`
	UsedAfter string `env:"USED_AFTER"`
	Verbose   bool   `env:"VERBOSE" envDefault:"false"`
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("zap.NewDevelopment: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	sugar.Info("Archiver is starting")

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		sugar.Fatalf("Cannot parse env config: %v", err)
	}

	dbCfg := storage.Config{}
	if err := env.Parse(&dbCfg); err != nil {
		sugar.Fatalf("Cannot parse storage env config: %v", err)
	}

	// one run id correlates api and database log lines for this run
	ctx := zapadapter.NewContextWithRunID(context.Background(), xid.New().String())

	client, err := groupme.New(ctx, sugar, cfg.Token)
	if err != nil {
		sugar.Fatalf("Cannot create GroupMe client: %v", err)
	}
	sugar.Infof("Authenticated as %s", client.Name)

	store, err := storage.New(ctx, sugar, dbCfg, storage.ConnectionTimeout(30*time.Second))
	if err != nil {
		sugar.Fatalf("Cannot create Store instance: %v", err)
	}
	defer store.Close()

	chats, err := client.GetChats(ctx, groupme.ChatQuery{UsedAfter: cfg.UsedAfter, Verbose: cfg.Verbose})
	if err != nil {
		sugar.Fatalf("Cannot fetch chats: %v", err)
	}
	sugar.Infof("Fetched %d chats", len(chats))

	totalMessages := 0
	for _, chat := range chats {
		info := chat.Info()

		kind := "direct"
		if chat.IsGroup() {
			kind = "group"
		}

		err = store.SaveChat(ctx, storage.ArchivedChat{
			ID:         info.ID,
			Name:       info.Name,
			Kind:       kind,
			CreatedAt:  time.Unix(info.CreatedEpoch, 0),
			LastUsedAt: time.Unix(info.LastUsedEpoch, 0),
		})
		if err != nil && err != storage.ErrChatArchived {
			sugar.Fatalf("Cannot archive chat %s: %v", info.Name, err)
		}

		messages, err := chat.Messages(ctx, groupme.MessageQuery{Verbose: cfg.Verbose})
		if err != nil {
			sugar.Fatalf("Cannot fetch messages from %s: %v", info.Name, err)
		}
		if len(messages) == 0 {
			continue
		}

		archived := make([]storage.ArchivedMessage, len(messages))
		for i, m := range messages {
			archived[i] = storage.ArchivedMessage{
				ID:        m.ID,
				ChatID:    info.ID,
				Author:    m.Author,
				AvatarURL: m.AvatarURL,
				Text:      m.Text,
				SentAt:    time.Unix(m.TimeEpoch, 0),
				ImageURLs: m.ImageURLs,
			}
		}

		err = store.SaveMessages(ctx, archived)
		if err == storage.ErrMessageArchived {
			sugar.Infof("Chat %s is already archived, skipping", info.Name)
			continue
		}
		if err != nil {
			sugar.Fatalf("Cannot archive messages from %s: %v", info.Name, err)
		}

		totalMessages += len(archived)
	}

	sugar.Infof("Archived %d messages across %d chats", totalMessages, len(chats))
}
