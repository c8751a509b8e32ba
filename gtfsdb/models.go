package gtfsdb

import "database/sql"

type Agency struct {
	ID       string
	Name     string
	Url      string
	Timezone string
	Lang     sql.NullString
	Phone    sql.NullString
	FareUrl  sql.NullString
	Email    sql.NullString
}

type Route struct {
	ID        string
	AgencyID  string
	ShortName sql.NullString
	LongName  sql.NullString
	Desc      sql.NullString
	Type      int64
	Url       sql.NullString
	Color     sql.NullString
	TextColor sql.NullString
}

type Stop struct {
	ID                 string
	Code               sql.NullString
	Name               sql.NullString
	Desc               sql.NullString
	Lat                float64
	Lon                float64
	ZoneID             sql.NullString
	Region             sql.NullString
	Url                sql.NullString
	LocationType       sql.NullInt64
	Timezone           sql.NullString
	WheelchairBoarding sql.NullInt64
	PlatformCode       sql.NullString
}

type Calendar struct {
	ID        string
	Monday    int64
	Tuesday   int64
	Wednesday int64
	Thursday  int64
	Friday    int64
	Saturday  int64
	Sunday    int64
	StartDate string
	EndDate   string
}

type CalendarDate struct {
	ID            int64
	ServiceID     string
	Date          string
	ExceptionType int64
}

type Trip struct {
	ID                   string
	RouteID              string
	ServiceID            string
	TripHeadsign         sql.NullString
	TripShortName        sql.NullString
	DirectionID          sql.NullInt64
	BlockID              sql.NullString
	WheelchairAccessible sql.NullInt64
	BikesAllowed         sql.NullInt64
}

type StopTime struct {
	ID            int64
	TripID        string
	ArrivalTime   string
	DepartureTime string
	StopID        string
	StopSequence  int64
	StopHeadsign  sql.NullString
	PickupType    sql.NullInt64
	DropOffType   sql.NullInt64
	Timepoint     sql.NullInt64
}

type ImportMetadata struct {
	ID         int64
	FileHash   string
	ImportTime int64
	FileSource string
}
