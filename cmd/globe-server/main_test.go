package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/peerglobe/internal/config"
	"github.com/signalsfoundry/peerglobe/internal/control"
	"github.com/signalsfoundry/peerglobe/internal/logging"
)

func TestGlobeServerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	path := filepath.Join(t.TempDir(), "entities.json")
	data := `[{"id": "alpha", "lat": 51.5, "lon": -0.12}, {"id": "beta", "lat": 40.7, "lon": -74.0}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Server.HTTPAddr = ""
	cfg.Server.MetricsAddr = ""
	cfg.Feed.Path = path

	log := logging.New(logging.Config{Level: "warn", Format: "text"})

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis)
	}()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()
	client := control.NewClient(conn)

	deadline := time.Now().Add(5 * time.Second)
	for {
		st, err := client.GetState(ctx)
		if err == nil && st.GetFields()["entities"].GetNumberValue() == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("entities never loaded: state=%v err=%v", st, err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	changed, err := client.NavigateTo(ctx, 1)
	if err != nil || !changed {
		t.Fatalf("NavigateTo = %v, %v", changed, err)
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}
