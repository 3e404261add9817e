package db

// Repositories provides access to all database repositories
type Repositories struct {
	Channels *ChannelRepository
	VODs     *VODRepository
	Schedule *ScheduleRepository
}

// NewRepositories creates a new repository collection
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Channels: NewChannelRepository(db),
		VODs:     NewVODRepository(db),
		Schedule: NewScheduleRepository(db),
	}
}
