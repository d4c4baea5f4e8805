package models

import (
	"log"

	"github.com/tomaszgubala/car-dealer/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Vehicle{},
		&ImportJob{},
		&Lead{},
		&StatEvent{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
