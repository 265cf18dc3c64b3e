package workorders

// Fallback supplies stand-in data for reads that failed.
type Fallback interface {
	List(filter Filter) []WorkOrder
	Get(id string) WorkOrder
}

var _ Fallback = Empty{}

// Empty is a Fallback that reports no work orders. Inventing tasks would
// send crews to work that does not exist, so the synthetic answer is an
// empty list and a placeholder for single lookups.
type Empty struct{}

func (Empty) List(Filter) []WorkOrder {
	return []WorkOrder{}
}

func (Empty) Get(id string) WorkOrder {
	return WorkOrder{ID: id, Title: "Unavailable", Status: StatusOpen}
}
