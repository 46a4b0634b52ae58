package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/taoyao-code/power-gateway/internal/protocol/ydt/registry"
	"github.com/taoyao-code/power-gateway/internal/simulator"
	"github.com/taoyao-code/power-gateway/internal/transport"
)

// 设备角色仿真器：挂在一条串口（通常是socat建的pty对）上，
// 应答MU4801命令表，联调网关用。
func main() {
	port := flag.String("port", "/dev/ttyUSB1", "串口设备路径")
	baud := flag.Int("baud", 9600, "波特率")
	address := flag.Uint("address", 1, "协议设备地址")
	tablePath := flag.String("table", "", "命令表YAML，为空用内置MU4801表")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	table := registry.DefaultTable()
	if *tablePath != "" {
		table, err = registry.LoadTable(*tablePath)
		if err != nil {
			logger.Fatal("load command table", zap.Error(err))
		}
	}
	reg, err := registry.Build(table)
	if err != nil {
		logger.Fatal("build command registry", zap.Error(err))
	}

	tr := transport.New(transport.Config{Address: *port, BaudRate: *baud}, logger)
	if err := tr.Connect(); err != nil {
		logger.Fatal("open serial port", zap.Error(err))
	}
	defer func() { _ = tr.Close() }()

	st := simulator.NewState(uint8(*address))
	dev := simulator.NewDevice(st, reg, tr, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("simulated device listening",
		zap.String("port", *port),
		zap.Uint8("address", st.Address))
	dev.Serve(ctx)
}
