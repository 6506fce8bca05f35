package app

import (
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jitsdiary/jitsdiary/internal/models"
)

// seedTechniques is the starter technique library, inserted once when
// the table is empty.
var seedTechniques = []models.Technique{
	{Name: "Closed Guard", Category: "guard"},
	{Name: "Half Guard", Category: "guard"},
	{Name: "De La Riva Guard", Category: "guard"},
	{Name: "Spider Guard", Category: "guard"},
	{Name: "Butterfly Guard", Category: "guard"},
	{Name: "Mount", Category: "mount"},
	{Name: "Technical Mount", Category: "mount"},
	{Name: "S-Mount", Category: "mount"},
	{Name: "Double Leg Takedown", Category: "takedown"},
	{Name: "Single Leg Takedown", Category: "takedown"},
	{Name: "Osoto Gari", Category: "takedown"},
	{Name: "Armbar", Category: "submission"},
	{Name: "Triangle Choke", Category: "submission"},
	{Name: "Rear Naked Choke", Category: "submission"},
	{Name: "Kimura", Category: "submission"},
	{Name: "Guillotine", Category: "submission"},
	{Name: "Upa Escape", Category: "escape"},
	{Name: "Elbow Knee Escape", Category: "escape"},
	{Name: "Back Escape", Category: "escape"},
	{Name: "Knee Cut Pass", Category: "transition"},
	{Name: "Toreando Pass", Category: "transition"},
	{Name: "Back Take from Turtle", Category: "transition"},
}

var seedGyms = []models.Gym{
	{Name: "Downtown BJJ"},
	{Name: "Northside Grappling"},
}

// seedReferenceData inserts the starter technique library and gyms when
// their tables are empty. User data is never touched.
func seedReferenceData(conn *gorm.DB) error {
	var techniqueCount int64
	if errCount := conn.Model(&models.Technique{}).Count(&techniqueCount).Error; errCount != nil {
		return errCount
	}
	if techniqueCount == 0 {
		rows := make([]models.Technique, len(seedTechniques))
		copy(rows, seedTechniques)
		for i := range rows {
			rows[i].ID = uuid.NewString()
		}
		if errCreate := conn.Create(&rows).Error; errCreate != nil {
			return errCreate
		}
		log.WithField("count", len(rows)).Info("seeded technique library")
	}

	var gymCount int64
	if errCount := conn.Model(&models.Gym{}).Count(&gymCount).Error; errCount != nil {
		return errCount
	}
	if gymCount == 0 {
		rows := make([]models.Gym, len(seedGyms))
		copy(rows, seedGyms)
		for i := range rows {
			rows[i].ID = uuid.NewString()
		}
		if errCreate := conn.Create(&rows).Error; errCreate != nil {
			return errCreate
		}
		log.WithField("count", len(rows)).Info("seeded gyms")
	}
	return nil
}
