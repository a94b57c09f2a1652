package main

import (
	"context"
	"fmt"
	"time"

	appwms "github.com/casa/wms/internal/application/wms"
	"github.com/casa/wms/internal/domain/wms"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func (c *cli) newScanCmd() *cobra.Command {
	var req appwms.ScanRequest
	cmd := &cobra.Command{
		Use:   "scan <barcode> <location>",
		Short: "Move the item carrying a barcode into a zone",
		Long: `Records a physical scan. The item's status is re-derived from the new
zone and the linked workflow record (if any) is advanced in the same
transaction. An unknown barcode scanned at intake provisions a new item.

Example:
  wms scan --staff kim 4901234567894 DOMESTIC_ARRIVAL_ZONE
  wms scan --staff kim --hold-reason "box damaged" CB000123 HOLD_ZONE`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				req.Barcode = args[0]
				req.ToLocationCode = args[1]
				req.StaffName = c.staff
				resp, err := a.scans.Scan(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().StringVar(&req.ActionType, "action", "", "Action recorded on the scan event (default SCAN)")
	cmd.Flags().StringVar(&req.Note, "note", "", "Free-text note on the scan event")
	cmd.Flags().StringVar(&req.HoldReason, "hold-reason", "", "Reason stored when scanning into the hold zone")
	return cmd
}

func (c *cli) newRegisterCmd() *cobra.Command {
	var (
		req       appwms.RegisterRequest
		scheduled string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register an item by hand",
		Long: `Creates an item without a scan, optionally linked to a workflow record and
optionally with a freshly allocated internal barcode.

Example:
  wms register --barcode 4901234567894 --request-type 2 --workflow-id W-1001 --internal-barcode`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if scheduled != "" {
				at, err := time.Parse(time.DateOnly, scheduled)
				if err != nil {
					return fmt.Errorf("--scheduled-at: %w", err)
				}
				req.WorkflowScheduledAt = &at
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				req.StaffName = c.staff
				resp, err := a.scans.Register(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.ExternalBarcode, "barcode", "", "External (manufacturer) barcode")
	f.IntVar(&req.RequestType, "request-type", 0, "0 none, 1 appraisal, 2 repair, 3 both")
	f.StringVar(&req.LocationCode, "location", "", "Initial zone (default intake)")
	f.StringVar(&req.WorkflowType, "workflow-type", "", "Linked workflow type (default bid)")
	f.StringVar(&req.WorkflowID, "workflow-id", "", "Linked workflow record id")
	f.StringVar(&req.WorkflowItemID, "workflow-item-id", "", "Item identifier on the workflow side")
	f.StringVar(&scheduled, "scheduled-at", "", "Workflow schedule date (YYYY-MM-DD)")
	f.StringVar(&req.OwnerName, "owner", "", "Consignor name")
	f.StringVar(&req.ItemTitle, "title", "", "Item title")
	f.StringVar(&req.AuctionCode, "auction-code", "", "Auction house code")
	f.BoolVar(&req.GenerateInternalBarcode, "internal-barcode", false, "Allocate an internal barcode")
	return cmd
}

func (c *cli) newItemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "item <id|item-uid|barcode>",
		Short: "Show an item with its recent scan history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				resp, err := a.scans.GetItem(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
}

func (c *cli) newBoardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Per-zone counts and recently moved items",
		Long:  "Runs the consistency sweep first, then reports the floor.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				resp, err := a.board.Board(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
}

func (c *cli) newBackfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Run one consistency sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				report, err := a.backfill.Run(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func (c *cli) newLabelsCmd() *cobra.Command {
	var workflowType string
	cmd := &cobra.Command{
		Use:   "labels <workflow-id>...",
		Short: "Prepare printable labels for workflow records",
		Long: `Makes sure every record has a linked item with an internal barcode and
prints one label row per record. A failing record is reported on its row.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := appwms.LabelBatchRequest{StaffName: c.staff}
			for _, id := range args {
				req.Records = append(req.Records, appwms.WorkflowRef{WorkflowType: workflowType, WorkflowID: id})
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				rows, err := a.labels.GenerateAuctionLabels(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rows)
			})
		},
	}
	cmd.Flags().StringVar(&workflowType, "workflow-type", wms.DefaultWorkflowType, "Workflow type of every record")
	return cmd
}

func (c *cli) newRepairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Repair routing: decisions, proposals, completion, shipping",
	}
	cmd.AddCommand(
		c.newRepairDecideCmd(),
		c.newRepairSendCmd(),
		c.newRepairAcceptCmd(),
		c.newRepairRejectCmd(),
		c.newRepairCompleteCmd(),
		c.newRepairShipCmd(),
		c.newRepairVendorsCmd(),
	)
	return cmd
}

func (c *cli) newRepairDecideCmd() *cobra.Command {
	var (
		req    appwms.RepairDecisionRequest
		amount string
	)
	cmd := &cobra.Command{
		Use:   "decide <item-id>",
		Short: "Record a repair decision and move the item accordingly",
		Long: `Decision types: INTERNAL, EXTERNAL, NONE.

Example:
  wms repair decide --decision EXTERNAL --vendor "Seoul Leather" --amount 120000 --eta "2 weeks" <item-id>`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid item id %q: %w", args[0], err)
			}
			req.ItemID = id
			req.StaffName = c.staff
			if amount != "" {
				d, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("--amount: %w", err)
				}
				req.Amount = &d
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				resp, err := a.repairs.SubmitDecision(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.DecisionType, "decision", "", "INTERNAL, EXTERNAL or NONE")
	f.StringVar(&req.VendorName, "vendor", "", "Repair vendor (EXTERNAL only)")
	f.StringVar(&req.Note, "note", "", "Customer-facing note")
	f.StringVar(&amount, "amount", "", "Quoted amount")
	f.StringVar(&req.ETA, "eta", "", "Expected turnaround")
	f.StringVar(&req.InternalNote, "internal-note", "", "Note kept off the proposal")
	_ = cmd.MarkFlagRequired("decision")
	return cmd
}

func itemActionCmd[R any](c *cli, use, short string, run func(*app) func(context.Context, appwms.ItemActionRequest) (R, error)) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   use + " <item-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid item id %q: %w", args[0], err)
			}
			req := appwms.ItemActionRequest{ItemID: id, StaffName: c.staff, Note: note}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				resp, err := run(a)(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "Note on the scan event")
	return cmd
}

func (c *cli) newRepairCompleteCmd() *cobra.Command {
	return itemActionCmd(c, "complete", "Mark a repair finished and move the item to repair done",
		func(a *app) func(context.Context, appwms.ItemActionRequest) (*appwms.ItemResponse, error) {
			return a.repairs.CompleteRepair
		})
}

func (c *cli) newRepairShipCmd() *cobra.Command {
	return itemActionCmd(c, "ship", "Move a finished item to outbound",
		func(a *app) func(context.Context, appwms.ItemActionRequest) (*appwms.ItemResponse, error) {
			return a.repairs.Ship
		})
}

func (c *cli) newRepairSendCmd() *cobra.Command {
	return itemActionCmd(c, "send", "Record that the repair proposal went out to the owner",
		func(a *app) func(context.Context, appwms.ItemActionRequest) (*appwms.RepairCaseResponse, error) {
			return a.repairs.MarkProposalSent
		})
}

func (c *cli) newRepairAcceptCmd() *cobra.Command {
	return itemActionCmd(c, "accept", "Record the owner's approval and move the item into repair",
		func(a *app) func(context.Context, appwms.ItemActionRequest) (*appwms.RepairDecisionResponse, error) {
			return a.repairs.AcceptProposal
		})
}

func (c *cli) newRepairRejectCmd() *cobra.Command {
	return itemActionCmd(c, "reject", "Record that the owner declined the repair proposal",
		func(a *app) func(context.Context, appwms.ItemActionRequest) (*appwms.RepairCaseResponse, error) {
			return a.repairs.RejectProposal
		})
}

func (c *cli) newRepairVendorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vendors",
		Short: "List active repair vendors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				vendors, err := a.repairs.ListVendors(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), vendors)
			})
		},
	}
}

func (c *cli) newSyncCmd() *cobra.Command {
	var workflowType, notificationID string
	cmd := &cobra.Command{
		Use:   "sync <workflow-id> <stage>",
		Short: "Apply a workflow stage change to the floor",
		Long: `Forward sync: tells the warehouse that a workflow record reached a stage
(completed, arrived, processing, shipped). An item already at the target is
left alone. A redelivery carrying the same --notification-id is suppressed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := appwms.ForwardSyncRequest{
				WorkflowType:   workflowType,
				WorkflowID:     args[0],
				Stage:          args[1],
				NotificationID: notificationID,
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				resp, err := a.bridge.ForwardSync(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().StringVar(&workflowType, "workflow-type", wms.DefaultWorkflowType, "Workflow type of the record")
	cmd.Flags().StringVar(&notificationID, "notification-id", "", "Delivery id used to suppress redeliveries")
	return cmd
}
