package main

import (
	"log"
	"os"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"zerowaste/internal/config"
	"zerowaste/internal/database"
	"zerowaste/internal/handlers"
	"zerowaste/internal/middleware"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureDonationIndexes(db); err != nil {
		log.Printf("donation index warning: %v", err)
	}
	if err := database.EnsureRefreshTokenIndexes(db); err != nil {
		log.Printf("refresh token index warning: %v", err)
	}

	r := gin.Default()
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Static("/public", config.AppEnv.UploadDir)

	r.POST("/auth/register", handlers.Register(
		db,
		config.AppEnv.JWTSecret,
		config.AppEnv.AccessTokenTTL,
		config.AppEnv.RefreshTokenTTL,
	))
	r.POST("/auth/login", handlers.Login(
		db,
		config.AppEnv.JWTSecret,
		config.AppEnv.AccessTokenTTL,
		config.AppEnv.RefreshTokenTTL,
	))
	r.POST("/auth/refresh", handlers.Refresh(
		db,
		config.AppEnv.JWTSecret,
		config.AppEnv.AccessTokenTTL,
		config.AppEnv.RefreshTokenTTL,
	))
	r.POST("/auth/logout", handlers.Logout(db))

	r.GET("/donations/stats", handlers.GetDonationStats(db))
	r.GET("/donations/location", handlers.GetDonationsByLocation(db))

	account := r.Group("/auth")
	account.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		account.GET("/me", handlers.GetMe(db))
		account.PUT("/profile", handlers.UpdateProfile(db))
		account.PUT("/password", handlers.ChangePassword(db))
		account.DELETE("/account", handlers.DeleteAccount(db))
		account.GET("/stats", handlers.GetUserStats(db))
	}

	donationRoutes := r.Group("/donations")
	donationRoutes.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		donationRoutes.GET("", handlers.GetDonations(db))
		donationRoutes.POST("", handlers.CreateDonation(db))
		donationRoutes.GET("/:id", handlers.GetDonationByID(db))
		donationRoutes.PUT("/:id", handlers.UpdateDonation(db))
		donationRoutes.DELETE("/:id", handlers.DeleteDonation(db))
		donationRoutes.POST("/:id/claim", handlers.ClaimDonation(db))
		donationRoutes.POST("/:id/pickup", handlers.MarkPicked(db))
		donationRoutes.POST("/upload", handlers.UploadDonationImage())
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
