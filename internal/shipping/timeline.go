package shipping

import (
	"time"
)

// stage is one tracking checkpoint, reached once offset (a fraction of the
// delivery horizon) has elapsed since AWB assignment.
type stage struct {
	status      string
	statusID    int
	activity    string
	offset      float64
	destination bool
}

var stages = []stage{
	{status: "AWB ASSIGNED", statusID: 1, activity: "Shipment details received, AWB assigned", offset: 0},
	{status: "PICKED UP", statusID: 42, activity: "Shipment picked up from seller", offset: 0.10},
	{status: "SHIPPED", statusID: 6, activity: "Shipment dispatched from origin hub", offset: 0.20},
	{status: "IN TRANSIT", statusID: 18, activity: "Shipment in transit to destination", offset: 0.35},
	{status: "REACHED AT DESTINATION HUB", statusID: 38, activity: "Shipment reached destination hub", offset: 0.60, destination: true},
	{status: "OUT FOR DELIVERY", statusID: 17, activity: "Shipment out for delivery", offset: 0.85, destination: true},
	{status: "DELIVERED", statusID: 7, activity: "Shipment delivered", offset: 1, destination: true},
}

const (
	statusPickupScheduled   = "PICKUP SCHEDULED"
	statusIDPickupScheduled = 4
)

func stageOffset(s stage, horizon time.Duration) time.Duration {
	return time.Duration(float64(horizon) * s.offset)
}

// reachedStage is the index of the latest stage reached at now.
func reachedStage(assignedAt, etd, now time.Time) int {
	horizon := etd.Sub(assignedAt)
	elapsed := now.Sub(assignedAt)
	reached := 0
	for i, s := range stages {
		if elapsed >= stageOffset(s, horizon) {
			reached = i
		}
	}
	return reached
}

// timeline synthesizes the checkpoints reached at now, oldest first.
func (e *Emulator) timeline(o *Order, now time.Time) []Checkpoint {
	if o.AWBAssignedAt == nil {
		return nil
	}
	assignedAt := *o.AWBAssignedAt
	horizon := o.ETD.Sub(assignedAt)
	last := reachedStage(assignedAt, o.ETD, now)

	scans := make([]Checkpoint, 0, last+1)
	for _, s := range stages[:last+1] {
		location := e.cfg.OriginCity
		if s.destination {
			location = o.Request.DestinationCity()
		}
		scans = append(scans, Checkpoint{
			Status:   s.status,
			StatusID: s.statusID,
			Activity: s.activity,
			Location: location,
			Date:     assignedAt.Add(stageOffset(s, horizon)),
		})
	}
	return scans
}
