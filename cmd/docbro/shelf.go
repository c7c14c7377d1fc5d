package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/behemotion/docbro/internal/catalog"
	"github.com/behemotion/docbro/internal/model"
)

var shelfCmd = &cobra.Command{
	Use:   "shelf",
	Short: "Manage shelves",
}

var (
	shelfDescription string
	shelfSetCurrent  bool
	shelfDefaultType string
	shelfAutoFill    bool
	shelfForce       bool
)

func init() {
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new shelf",
		Args:  cobra.ExactArgs(1),
		RunE:  runShelfCreate,
	}
	create.Flags().StringVar(&shelfDescription, "description", "", "shelf description (max 500 chars)")
	create.Flags().BoolVar(&shelfSetCurrent, "current", false, "make this the current shelf")
	create.Flags().StringVar(&shelfDefaultType, "default-box-type", string(model.BoxTypeDrag), "default type for boxes added without an explicit type")
	create.Flags().BoolVar(&shelfAutoFill, "auto-fill", false, "automatically fill boxes added to this shelf")

	list := &cobra.Command{
		Use:   "list",
		Short: "List shelves",
		RunE:  runShelfList,
	}

	rename := &cobra.Command{
		Use:   "rename <old-name> <new-name>",
		Short: "Rename a shelf",
		Args:  cobra.ExactArgs(2),
		RunE:  runShelfRename,
	}

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a shelf",
		Args:  cobra.ExactArgs(1),
		RunE:  runShelfDelete,
	}
	del.Flags().BoolVar(&shelfForce, "force", false, "delete even if the shelf has boxes")

	use := &cobra.Command{
		Use:   "use <name>",
		Short: "Set the current shelf",
		Args:  cobra.ExactArgs(1),
		RunE:  runShelfUse,
	}

	shelfCmd.AddCommand(create, list, rename, del, use)
}

func runShelfCreate(cmd *cobra.Command, args []string) error {
	shelf, err := application.Catalog.CreateShelf(cmd.Context(), args[0], catalog.ShelfOptions{
		Description:    shelfDescription,
		SetCurrent:     shelfSetCurrent,
		DefaultBoxType: model.BoxType(shelfDefaultType),
		AutoFill:       shelfAutoFill,
	})
	if err != nil {
		return err
	}
	cmd.Printf("created shelf %q (id=%s)\n", shelf.Name, shelf.ID)
	return nil
}

func runShelfList(cmd *cobra.Command, args []string) error {
	shelves, err := application.Catalog.ListShelves(cmd.Context(), false, 0)
	if err != nil {
		return err
	}
	for _, s := range shelves {
		marker := " "
		if s.IsCurrent {
			marker = "*"
		}
		cmd.Println(fmt.Sprintf("%s %-24s %s", marker, s.Name, s.Description))
	}
	return nil
}

func runShelfRename(cmd *cobra.Command, args []string) error {
	if err := application.Catalog.RenameShelf(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("renamed shelf %q to %q\n", args[0], args[1])
	return nil
}

func runShelfDelete(cmd *cobra.Command, args []string) error {
	if err := application.Catalog.DeleteShelf(cmd.Context(), args[0], shelfForce); err != nil {
		return err
	}
	cmd.Printf("deleted shelf %q\n", args[0])
	return nil
}

func runShelfUse(cmd *cobra.Command, args []string) error {
	if err := application.Catalog.SetCurrentShelf(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("current shelf is now %q\n", args[0])
	return nil
}
