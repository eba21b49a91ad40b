package main

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

func startIncomeLoop(svc *EconomyService) {
	ticker := time.NewTicker(incomeTickInterval * time.Second)

	go func() {
		for range ticker.C {
			svc.ProcessIncomeTick()
		}
	}()
}

func startAutoSaveLoop(svc *EconomyService) {
	ticker := time.NewTicker(saveInterval)

	go func() {
		for range ticker.C {
			svc.SaveAll()
		}
	}()
}

func startEventCron(scheduler *EventScheduler) *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc("* * * * *", func() {
		scheduler.CheckEvents(time.Now().UTC())
	})
	if err != nil {
		log.Fatalln("[events] cron setup failed:", err)
	}
	c.Start()

	// Open windows immediately instead of waiting for the first minute mark.
	scheduler.CheckEvents(time.Now().UTC())
	return c
}
