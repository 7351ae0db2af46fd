package main

import (
	"flag"
	"time"

	timer "github.com/xiaonanln/goTimer"
	"github.com/xiaonanln/gozone/engine/common"
	"github.com/xiaonanln/gozone/engine/config"
	"github.com/xiaonanln/gozone/engine/gzlog"
	"github.com/xiaonanln/gozone/engine/post"
	"github.com/xiaonanln/gozone/engine/sim"
	"github.com/xiaonanln/gozone/engine/zone"
)

var configFile = ""

func parseArgs() {
	flag.StringVar(&configFile, "configfile", "", "set config file path")
	flag.Parse()
}

func main() {
	parseArgs()

	if configFile != "" {
		config.SetConfigFile(configFile)
	}
	cfg := config.Get()
	gzlog.SetSource("demo")
	gzlog.SetLevel(gzlog.StringToLevel(cfg.Zone.LogLevel))

	world := sim.NewWorld()
	world.AddVolume("arena")
	world.AddEntity("hero", "hero.body", "hero.sword")
	world.AddEntity("slime", "slime.body")
	world.AddEntity("ghost", "ghost.body")

	arena, err := zone.Create(world, "arena", func(entity common.EntityID, surface common.SurfaceID) bool {
		return entity != "ghost" // ghosts pass through unnoticed
	})
	if err != nil {
		gzlog.Fatalf("create arena zone failed: %v", err)
	}

	arena.OnEnter().Connect(func(e common.EntityID) {
		post.Post(func() {
			gzlog.Infof("%s entered the arena, members: %v", e, arena.GetMembers())
		})
	})
	arena.OnLeave().Connect(func(e common.EntityID) {
		post.Post(func() {
			gzlog.Infof("%s left the arena, members: %v", e, arena.GetMembers())
		})
	})

	// scripted contact stream, the kind a physics engine would deliver
	timer.AddCallback(time.Second*1, func() {
		world.BeginContact("arena", "hero.body")
	})
	timer.AddCallback(time.Second*3/2, func() {
		world.BeginContact("arena", "hero.sword") // second surface, no second enter
	})
	timer.AddCallback(time.Second*2, func() {
		world.BeginContact("arena", "slime.body")
	})
	timer.AddCallback(time.Second*5/2, func() {
		world.BeginContact("arena", "ghost.body") // rejected by the filter
	})
	timer.AddCallback(time.Second*3, func() {
		world.EndContact("arena", "hero.body") // hero stays, sword still touching
	})
	timer.AddCallback(time.Second*4, func() {
		world.EndContact("arena", "hero.sword") // hero leaves
	})
	timer.AddCallback(time.Second*5, func() {
		world.KillEntity("slime") // death removes the slime immediately
	})

	deadline := time.Now().Add(time.Second * time.Duration(cfg.Demo.RunSeconds))
	for time.Now().Before(deadline) {
		timer.Tick()
		post.Tick()
		time.Sleep(cfg.Demo.TickInterval)
	}

	arena.Destroy()
	post.Tick()
	gzlog.Infof("demo finished")
}
