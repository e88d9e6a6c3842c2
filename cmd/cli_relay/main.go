package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"anon-relay/internal/config"
	"anon-relay/internal/db"
	"anon-relay/internal/domain"
	"anon-relay/internal/repository"
	"anon-relay/internal/service"
	"anon-relay/internal/transport"
)

const usage = `Formato: <caller> <texto>
  alice /register       comando
  alice 2               texto libre
  bob !reply_1_1        pulsar un botón
Escribe 'salir' para terminar.`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrar esquema: %v", err)
	}

	sender := transport.NewConsoleSender(os.Stdout)
	identitySvc := service.NewIdentityService(logger, repository.NewPgUserRepository(pool))
	engine := service.NewConversationEngine(
		logger,
		service.NewMemorySessionStore(time.Duration(cfg.SessionTTLMinutes)*time.Minute),
		identitySvc,
		service.NewChatroomService(repository.NewPgChannelRepository(pool)),
		service.NewLedgerService(repository.NewPgMessageRepository(pool)),
		service.NewRelayService(logger, identitySvc, sender),
		sender,
	)

	fmt.Println("===== Relay Console =====")
	fmt.Println(usage)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "salir") {
			return
		}
		if line == "" {
			continue
		}
		ev, ok := parseLine(line)
		if !ok {
			fmt.Println(usage)
			continue
		}
		if err := engine.Handle(ctx, ev); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// parseLine convierte "<caller> <texto>" en un evento. El chat de respuesta
// es el propio caller.
func parseLine(line string) (domain.InboundEvent, bool) {
	caller, rest, found := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	if !found || caller == "" || rest == "" {
		return domain.InboundEvent{}, false
	}

	ev := domain.InboundEvent{
		ID:          uuid.NewString(),
		CallerID:    caller,
		CallerLabel: caller,
		ChatID:      caller,
		ReceivedAt:  time.Now().UTC(),
	}
	switch {
	case strings.HasPrefix(rest, "/"):
		name, args, _ := strings.Cut(strings.TrimPrefix(rest, "/"), " ")
		ev.Kind = domain.EventCommand
		ev.Command = strings.ToLower(name)
		ev.Text = strings.TrimSpace(args)
	case strings.HasPrefix(rest, "!"):
		ev.Kind = domain.EventButton
		ev.Payload = strings.TrimPrefix(rest, "!")
		ev.ButtonID = ev.ID
	default:
		ev.Kind = domain.EventText
		ev.Text = rest
	}
	return ev, true
}
