package order

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	DefaultStorageFileName = ".odos-swap-orders.json"
)

// Storage handles persistence of limit orders. Orders are handed out as
// copies; callers mutate their copy and persist it with Update, so concurrent
// readers never observe in-place writes.
type Storage struct {
	filePath string
	mu       sync.RWMutex
	orders   map[string]*LimitOrder
}

// orderFile represents the JSON structure on disk
type orderFile struct {
	Orders map[string]*LimitOrder `json:"orders"`
}

// NewStorage creates a storage instance backed by filePath. An empty path
// defaults to a file in the home directory.
func NewStorage(filePath string) (*Storage, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}

	storage := &Storage{
		filePath: filePath,
		orders:   make(map[string]*LimitOrder),
	}

	// Load existing orders if the file exists; it is created on first save
	if err := storage.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load orders: %w", err)
		}
	}

	return storage, nil
}

// load reads orders from the storage file
func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var file orderFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal orders: %w", err)
	}

	s.orders = file.Orders
	if s.orders == nil {
		s.orders = make(map[string]*LimitOrder)
	}
	return nil
}

// save writes orders to the storage file
func (s *Storage) save() error {
	data, err := json.MarshalIndent(orderFile{Orders: s.orders}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal orders: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to a temporary file first, then rename for an atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write orders: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to replace orders file: %w", err)
	}
	return nil
}

// Add stores a new order. The name must be unique.
func (s *Storage) Add(order *LimitOrder) error {
	if err := order.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.Name]; exists {
		return fmt.Errorf("order '%s' already exists", order.Name)
	}

	now := time.Now()
	order.Created = now
	order.LastUpdated = now
	if order.Status == "" {
		order.Status = StatusActive
	}

	stored := *order
	s.orders[order.Name] = &stored
	return s.save()
}

// Get returns a copy of the order with the given name
func (s *Storage) Get(name string) (*LimitOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.orders[name]
	if !exists {
		return nil, fmt.Errorf("order '%s' not found", name)
	}
	order := *stored
	return &order, nil
}

// List returns copies of all orders sorted by creation time
func (s *Storage) List() []*LimitOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]*LimitOrder, 0, len(s.orders))
	for _, stored := range s.orders {
		order := *stored
		orders = append(orders, &order)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].Created.Before(orders[j].Created)
	})
	return orders
}

// Active returns all orders still eligible for execution
func (s *Storage) Active() []*LimitOrder {
	all := s.List()
	active := make([]*LimitOrder, 0, len(all))
	for _, order := range all {
		if order.CanExecute() {
			active = append(active, order)
		}
	}
	return active
}

// Update persists changes to an existing order
func (s *Storage) Update(order *LimitOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.Name]; !exists {
		return fmt.Errorf("order '%s' not found", order.Name)
	}

	order.LastUpdated = time.Now()
	stored := *order
	s.orders[order.Name] = &stored
	return s.save()
}

// Cancel marks an active order as cancelled
func (s *Storage) Cancel(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.orders[name]
	if !exists {
		return fmt.Errorf("order '%s' not found", name)
	}
	if order.Status != StatusActive {
		return fmt.Errorf("order '%s' is %s, only active orders can be cancelled", name, order.Status)
	}

	order.Status = StatusCancelled
	order.LastUpdated = time.Now()
	return s.save()
}

// Remove deletes an order regardless of status
func (s *Storage) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[name]; !exists {
		return fmt.Errorf("order '%s' not found", name)
	}
	delete(s.orders, name)
	return s.save()
}
