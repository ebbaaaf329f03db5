package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/FabianB14/InterverseSDK/internal/app"
	"github.com/FabianB14/InterverseSDK/internal/event"
	"github.com/FabianB14/InterverseSDK/internal/infra/verse"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// Pprof server, localhost only.
	go func() {
		slog.Info("Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := app.NewClient(bootstrap.Config, bootstrap.Store, bootstrap.Snapshots)

	if err := client.RecoverState(ctx); err != nil {
		// A stale or corrupt snapshot is not fatal; start from a cold view.
		slog.Warn("State recovery failed", slog.Any("error", err))
	}

	// Log-only subscribers; a game plugs its own handlers in here.
	client.OnConnectionState(func(e event.ConnectionStateEvent) {
		slog.Info("Stream state changed", slog.Bool("connected", e.Success), slog.String("reason", e.Reason))
	})
	client.OnAssetMinted(func(e event.AssetMintedEvent) {
		slog.Info("Asset minted",
			slog.String("asset_id", e.Asset.AssetID),
			slog.String("owner", e.OwnerID),
			slog.String("rarity", e.Asset.Rarity.String()))
	})
	client.OnTransferComplete(func(e event.TransferCompleteEvent) {
		slog.Info("Transfer complete",
			slog.String("asset_id", e.AssetID),
			slog.String("from", e.FromAddress),
			slog.String("to", e.ToAddress),
			slog.Bool("success", e.Success))
	})
	client.OnBalanceUpdated(func(e event.BalanceUpdatedEvent) {
		slog.Info("Balance updated",
			slog.String("address", e.Address),
			slog.String("balance", e.Balance.String()))
	})

	client.Start()
	defer client.Stop()

	if err := client.Connect(ctx); err != nil {
		// The request API works without the stream; keep running.
		slog.Error("Stream connect failed", slog.Any("error", err))
	}

	client.VerifyGame(ctx, func(info verse.GameInfo, err error) {
		if err != nil {
			slog.Warn("Game verification failed", slog.Any("error", err))
			return
		}
		slog.Info("Game verified", slog.String("game_id", info.GameID), slog.String("name", info.Name))
	})

	slog.InfoContext(ctx, "Interverse SDK operational. Press Ctrl+C to exit.")

	<-ctx.Done()

	slog.InfoContext(ctx, "Shutting down gracefully...")
}
