package mock_backend

//go:generate mockgen -destination=database.go -package=mock_backend -mock_names=Backend=MockDatabaseBackend github.com/terrycain/offline-cache-gateway/pkg/database Backend
//go:generate mockgen -destination=storage.go -package=mock_backend -mock_names=Backend=MockStorageBackend github.com/terrycain/offline-cache-gateway/pkg/storage Backend
