package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tomaszgubala/car-dealer/config"
	"github.com/tomaszgubala/car-dealer/models"
	"github.com/xuri/excelize/v2"
)

// exportStatsHandler streams the dashboard numbers as an xlsx workbook,
// one sheet for the summary, one for daily views, one for top vehicles.
func exportStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := models.GetDashboardStats(c.Request.Context())
		if err != nil {
			config.LogError(config.GetLogger(), "handlers", "exportStats", "loading dashboard stats", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
			return
		}

		f := excelize.NewFile()
		defer f.Close()

		f.SetSheetName("Sheet1", "Summary")
		f.SetCellValue("Summary", "A1", "Metric")
		f.SetCellValue("Summary", "B1", "Value")
		summary := []struct {
			label string
			value int64
		}{
			{"Total vehicles", stats.TotalVehicles},
			{"Active vehicles", stats.ActiveVehicles},
			{"Active new vehicles", stats.NewVehicles},
			{"Active used vehicles", stats.UsedVehicles},
			{"Total leads", stats.TotalLeads},
		}
		row := 2
		for _, s := range summary {
			f.SetCellValue("Summary", "A"+fmt.Sprint(row), s.label)
			f.SetCellValue("Summary", "B"+fmt.Sprint(row), s.value)
			row++
		}
		for eventType, count := range stats.EventTotals {
			f.SetCellValue("Summary", "A"+fmt.Sprint(row), "Events: "+eventType)
			f.SetCellValue("Summary", "B"+fmt.Sprint(row), count)
			row++
		}

		if _, err := f.NewSheet("DailyViews"); err == nil {
			f.SetCellValue("DailyViews", "A1", "Date")
			f.SetCellValue("DailyViews", "B1", "Views")
			for i, d := range stats.DailyViews {
				f.SetCellValue("DailyViews", "A"+fmt.Sprint(i+2), d.Date)
				f.SetCellValue("DailyViews", "B"+fmt.Sprint(i+2), d.Count)
			}
		}

		if _, err := f.NewSheet("TopVehicles"); err == nil {
			f.SetCellValue("TopVehicles", "A1", "Make")
			f.SetCellValue("TopVehicles", "B1", "Model")
			f.SetCellValue("TopVehicles", "C1", "Slug")
			f.SetCellValue("TopVehicles", "D1", "Views")
			for i, v := range stats.TopVehicles {
				f.SetCellValue("TopVehicles", "A"+fmt.Sprint(i+2), v.Make)
				f.SetCellValue("TopVehicles", "B"+fmt.Sprint(i+2), v.Model)
				f.SetCellValue("TopVehicles", "C"+fmt.Sprint(i+2), v.Slug)
				f.SetCellValue("TopVehicles", "D"+fmt.Sprint(i+2), v.Views)
			}
		}

		filename := "stats-" + time.Now().Format("2006-01-02") + ".xlsx"
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename="+filename)
		if err := f.Write(c.Writer); err != nil {
			config.LogError(config.GetLogger(), "handlers", "exportStats", "writing workbook", filename, err)
		}
	}
}
