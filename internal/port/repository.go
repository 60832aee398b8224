package port

import (
	"github.com/vertextoedge/secure-file-share/internal/domain/repository"
)

// ShareRepository is an alias to the domain repository interface
type ShareRepository = repository.ShareRepository

// AccessLogRepository is an alias to the domain repository interface
type AccessLogRepository = repository.AccessLogRepository

// StatsRepository is an alias to the domain repository interface
type StatsRepository = repository.StatsRepository

// Store is an alias to the domain repository interface
type Store = repository.Store
