package main

import (
	"fmt"
	"time"

	"restaurant_order_backend/internal/models"
	"restaurant_order_backend/internal/repositories"
)

// seedDemoCatalog fills the in-memory store with one branch and a menu for the given day.
func seedDemoCatalog(store *repositories.MemoryStore, day time.Time) error {
	branch := store.AddBranch(models.Branch{Slug: "main-branch", Name: "Main branch", Address: "1 Market Street"})
	store.AddTable(models.Table{Slug: "table-1", Name: "Table 1", Status: models.TableStatusFree, BranchID: branch.ID})
	store.AddTable(models.Table{Slug: "table-2", Name: "Table 2", Status: models.TableStatusFree, BranchID: branch.ID})
	store.AddUser(models.User{Slug: "staff-1", Name: "Staff", BranchID: &branch.ID})

	menuDay := day.Format(models.MenuDayLayout)
	menu, err := store.AddMenu(models.Menu{Slug: "menu-" + menuDay, Day: menuDay, BranchID: branch.ID})
	if err != nil {
		return err
	}

	variants := []models.Variant{
		{Slug: "pho-small", Price: 45000, ProductID: 1, SizeID: 1},
		{Slug: "pho-large", Price: 60000, ProductID: 1, SizeID: 2},
		{Slug: "iced-coffee", Price: 25000, ProductID: 2, SizeID: 1},
	}
	for _, v := range variants {
		store.AddVariant(v)
	}

	stock := map[int64]int{1: 50, 2: 100} // product ID -> daily stock
	for productID := int64(1); productID <= 2; productID++ {
		if _, err := store.AddMenuItem(models.MenuItem{
			Slug:         fmt.Sprintf("%s-%d", menu.Slug, productID),
			MenuID:       menu.ID,
			ProductID:    productID,
			DefaultStock: stock[productID],
			CurrentStock: stock[productID],
		}); err != nil {
			return err
		}
	}
	return nil
}
